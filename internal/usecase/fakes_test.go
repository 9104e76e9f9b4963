package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fadilmartias/exam-grader/internal/apperror"
	"github.com/fadilmartias/exam-grader/internal/model"
	"github.com/fadilmartias/exam-grader/internal/service"
)

type memoryStore struct {
	mu          sync.Mutex
	assignments map[string]*model.Assignment
	submissions []model.Submission
	results     []*model.ResultRecord
	statuses    map[string]model.ProcessingStatus

	insertErr error
	updateErr error
	listErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		assignments: map[string]*model.Assignment{},
		statuses:    map[string]model.ProcessingStatus{},
	}
}

func (s *memoryStore) GetAssignment(_ context.Context, id string) (*model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return a, nil
}

func (s *memoryStore) ListSubmissions(_ context.Context, assignmentID string) ([]model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Submission
	for _, sub := range s.submissions {
		if sub.AssignmentID == assignmentID {
			if status, ok := s.statuses[sub.ID]; ok {
				sub.Status = status
			}
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *memoryStore) InsertResult(_ context.Context, result *model.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	copied := *result
	s.results = append(s.results, &copied)
	return nil
}

func (s *memoryStore) UpdateSubmissionStatus(_ context.Context, id string, status model.ProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if current := s.currentStatus(id); current != "" && current != model.StatusPending {
		return nil
	}
	s.statuses[id] = status
	return nil
}

func (s *memoryStore) currentStatus(id string) model.ProcessingStatus {
	if status, ok := s.statuses[id]; ok {
		return status
	}
	for _, sub := range s.submissions {
		if sub.ID == id {
			return sub.Status
		}
	}
	return ""
}

func (s *memoryStore) LatestResult(_ context.Context, submissionID string) (*model.ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []*model.ResultRecord
	for _, r := range s.results {
		if r.SubmissionID == submissionID {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil, apperror.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	return matches[0], nil
}

func (s *memoryStore) resultsFor(submissionID string) []*model.ResultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ResultRecord
	for _, r := range s.results {
		if r.SubmissionID == submissionID {
			out = append(out, r)
		}
	}
	return out
}

// fakeStorage resolves every reference to "signed:<ref>" and writes a small
// file on download.
type fakeStorage struct {
	resolveErr  map[string]error
	downloadErr map[string]error
	downloads   []string
}

func (f *fakeStorage) ResolveURL(_ context.Context, ref string) (string, error) {
	if err := f.resolveErr[ref]; err != nil {
		return "", err
	}
	return "signed:" + ref, nil
}

func (f *fakeStorage) Download(_ context.Context, fileURL, dest string) error {
	if err := f.downloadErr[fileURL]; err != nil {
		return err
	}
	f.downloads = append(f.downloads, dest)
	return os.WriteFile(dest, []byte(fileURL), 0o600)
}

// fakeTranscriber returns the downloaded file's content, which fakeStorage
// sets to the signed url, prefixed with the kind.
type fakeTranscriber struct {
	errs  map[string]error
	calls []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string, kind service.DocumentKind) (service.Transcription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.Transcription{}, err
	}
	source := string(data)
	f.calls = append(f.calls, source)
	if err := f.errs[source]; err != nil {
		return service.Transcription{}, err
	}
	return service.Transcription{Kind: kind, Text: fmt.Sprintf("%s text of %s", kind, source), Source: filepath.Base(path)}, nil
}

type fakeGrader struct {
	raw    string
	err    error
	inputs []service.GradeInput
}

func (f *fakeGrader) Grade(_ context.Context, in service.GradeInput) (string, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return "", f.err
	}
	return f.raw, nil
}

var errBoom = errors.New("boom")
