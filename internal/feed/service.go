package feed

import "fmt"

// Service is the orchestration layer callers use instead of touching the
// storages directly. Storage work is submitted to the task queue and runs
// off the main thread; results are delivered back on the main thread
// runner.
type Service struct {
	content ContentStorage
	journal JournalStorage
	queue   TaskQueue
	main    MainThreadRunner
	threads ThreadChecker
	logger  Logger
}

// NewService creates a Service with the provided dependencies. A nil
// logger discards output.
func NewService(content ContentStorage, journal JournalStorage, queue TaskQueue, main MainThreadRunner, threads ThreadChecker, logger Logger) *Service {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Service{
		content: content,
		journal: journal,
		queue:   queue,
		main:    main,
		threads: threads,
		logger:  logger,
	}
}

// CommitContent applies m to the content storage and reports the result
// to done on the main thread.
func (s *Service) CommitContent(m *ContentMutation, done func(CommitResult)) {
	s.queue.Execute("commitContent", UserFacing, func() {
		result := Failure
		if err := s.threads.CheckNotMainThread(); err != nil {
			s.logger.Error("content commit rejected", "error", err)
		} else {
			result = s.content.Commit(m)
		}
		if result == Failure {
			s.logger.Warn("content commit failed", "operations", len(m.Operations))
		}
		s.deliver("commitContent done", func() {
			if done != nil {
				done(result)
			}
		})
	})
}

// CommitJournal applies m to the journal storage and reports the result to
// done on the main thread.
func (s *Service) CommitJournal(m *JournalMutation, done func(CommitResult)) {
	s.queue.Execute("commitJournal", UserFacing, func() {
		result := Failure
		if err := s.threads.CheckNotMainThread(); err != nil {
			s.logger.Error("journal commit rejected", "journal", m.JournalName, "error", err)
		} else {
			result = s.journal.Commit(m)
		}
		if result == Failure {
			s.logger.Warn("journal commit failed", "journal", m.JournalName, "operations", len(m.Operations))
		}
		s.deliver("commitJournal done", func() {
			if done != nil {
				done(result)
			}
		})
	})
}

// GetContent looks up keys and delivers the found entries to done.
func (s *Service) GetContent(keys []string, done func(map[string][]byte, error)) {
	s.queue.Execute("getContent", UserFacing, func() {
		var (
			values map[string][]byte
			err    error
		)
		if err = s.threads.CheckNotMainThread(); err == nil {
			values, err = s.content.Get(keys)
		}
		s.deliver("getContent done", func() { done(values, err) })
	})
}

// GetAllContent returns every entry under prefix to done.
func (s *Service) GetAllContent(prefix string, done func(map[string][]byte, error)) {
	s.queue.Execute("getAllContent", Background, func() {
		var (
			values map[string][]byte
			err    error
		)
		if err = s.threads.CheckNotMainThread(); err == nil {
			values, err = s.content.GetAll(prefix)
		}
		s.deliver("getAllContent done", func() { done(values, err) })
	})
}

// ReadJournal delivers the journal's entries to done.
func (s *Service) ReadJournal(journalName string, done func([][]byte, error)) {
	s.queue.Execute("readJournal", UserFacing, func() {
		var (
			entries [][]byte
			err     error
		)
		if err = s.threads.CheckNotMainThread(); err == nil {
			entries, err = s.journal.Read(journalName)
		}
		s.deliver("readJournal done", func() { done(entries, err) })
	})
}

// ListJournals delivers the existing journal names to done.
func (s *Service) ListJournals(done func([]string, error)) {
	s.queue.Execute("listJournals", Background, func() {
		var (
			names []string
			err   error
		)
		if err = s.threads.CheckNotMainThread(); err == nil {
			names, err = s.journal.GetAllJournals()
		}
		s.deliver("listJournals done", func() { done(names, err) })
	})
}

// Clear wipes both storages as a head reset. The queue is told a reset is
// in progress until the wipe finishes.
func (s *Service) Clear(done func(CommitResult)) {
	s.queue.Reset()
	s.queue.Execute("clear", HeadReset, func() {
		result := Failure
		if err := s.threads.CheckNotMainThread(); err != nil {
			s.logger.Error("clear rejected", "error", err)
		} else {
			contentResult := s.content.Commit(NewContentMutation().DeleteAll())
			journalResult := s.journal.DeleteAll()
			if contentResult == Success && journalResult == Success {
				result = Success
			}
		}
		s.queue.CompleteReset()
		s.logger.Info("storage cleared", "result", result.String())
		s.deliver("clear done", func() {
			if done != nil {
				done(result)
			}
		})
	})
}

// ClearJournals removes every journal and leaves content alone.
func (s *Service) ClearJournals(done func(CommitResult)) {
	s.queue.Execute("clearJournals", UserFacing, func() {
		result := Failure
		if err := s.threads.CheckNotMainThread(); err != nil {
			s.logger.Error("journal clear rejected", "error", err)
		} else {
			result = s.journal.DeleteAll()
		}
		s.deliver("clearJournals done", func() {
			if done != nil {
				done(result)
			}
		})
	})
}

func (s *Service) deliver(name string, fn func()) {
	s.main.Execute(fmt.Sprintf("Service %s", name), fn)
}
