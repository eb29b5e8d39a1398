package wipe

import (
	"slices"
	"time"
)

// session накапливает результат одного запуска. Изменяется только
// рабочей горутиной движка, после freeze не используется.
type session struct {
	result    WipeResult
	fatal     bool
	cancelled bool
}

func newSession(id CertificateID, start time.Time) *session {
	return &session{result: WipeResult{CertificateID: id, StartTime: start}}
}

func (s *session) found(n int) {
	s.result.FilesFound = n
}

func (s *session) succeeded(name string, length int64) {
	s.result.FilesAttempted++
	s.result.FilesSucceeded++
	s.result.TotalBytesWiped += length
	s.result.Records = append(s.result.Records, WipeRecord{Name: name, Length: length})
}

func (s *session) failed(name string, err error) {
	s.result.FilesAttempted++
	s.result.Failures = append(s.result.Failures, Failure{Name: name, Reason: err.Error()})
}

func (s *session) unreadable(name string, err error) {
	s.result.Unreadable = append(s.result.Unreadable, Failure{Name: name, Reason: err.Error()})
}

func (s *session) abort(err error) {
	s.fatal = true
	s.result.Error = err.Error()
}

func (s *session) cancel() {
	s.cancelled = true
}

func (s *session) pruned(n int, errs []error) {
	s.result.DirsPruned = n
	for _, err := range errs {
		s.result.PruneErrors = append(s.result.PruneErrors, err.Error())
	}
}

// status вычисляет итоговый статус
func (s *session) status() Status {
	r := &s.result
	switch {
	case s.fatal:
		return StatusFailed
	case s.cancelled:
		return StatusCancelled
	case r.FilesAttempted > 0 && r.FilesSucceeded == 0:
		return StatusFailed
	case len(r.Failures) > 0 || len(r.Unreadable) > 0 || len(r.PruneErrors) > 0:
		return StatusPartial
	default:
		return StatusCompleted
	}
}

// freeze фиксирует время окончания и возвращает независимую копию
func (s *session) freeze(end time.Time) WipeResult {
	s.result.EndTime = end
	s.result.Status = s.status()

	out := s.result
	out.Records = slices.Clone(s.result.Records)
	out.Failures = slices.Clone(s.result.Failures)
	out.Unreadable = slices.Clone(s.result.Unreadable)
	out.PruneErrors = slices.Clone(s.result.PruneErrors)
	if out.Records == nil {
		out.Records = []WipeRecord{}
	}
	if out.Failures == nil {
		out.Failures = []Failure{}
	}
	return out
}
