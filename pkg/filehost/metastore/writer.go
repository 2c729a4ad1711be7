package metastore

// Save requests a snapshot of the current contents and returns immediately.
// Requests made while a write is in flight are coalesced into the next write,
// which always serializes the latest state.
func (s *Store) Save() {
	s.state.Lock()
	defer s.state.Unlock()

	if s.closed {
		s.logger.Warn("Snapshot requested after close", "path", s.path)
		return
	}
	s.requested++
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Flush blocks until every Save issued before the call has been written, and
// returns the error of the most recent write.
func (s *Store) Flush() error {
	s.state.Lock()
	defer s.state.Unlock()

	target := s.requested
	for s.completed < target {
		s.written.Wait()
	}
	return s.lastErr
}

// Close writes any pending snapshot and stops the writer. Saves after Close
// are dropped.
func (s *Store) Close() error {
	s.state.Lock()
	if s.closed {
		s.state.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	close(s.kick)
	s.state.Unlock()

	<-s.done

	s.state.Lock()
	defer s.state.Unlock()
	return s.lastErr
}

func (s *Store) run() {
	defer close(s.done)
	for range s.kick {
		s.drain()
	}
	s.drain()
}

func (s *Store) drain() {
	s.state.Lock()
	target := s.requested
	pending := target > s.completed
	s.state.Unlock()
	if !pending {
		return
	}

	err := s.writeSnapshot()
	if err != nil {
		s.logger.Error("Error updating metadata snapshot", "path", s.path, "error", err)
	} else {
		s.logger.Debug("Metadata snapshot updated", "path", s.path)
	}

	s.state.Lock()
	s.completed = target
	s.lastErr = err
	s.written.Broadcast()
	s.state.Unlock()
}
