package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

type memoryIssueRepository struct {
	mu       sync.RWMutex
	seq      uint64
	projects map[string]map[string]*memoryEntry
}

type memoryEntry struct {
	issue domain.Issue
	seq   uint64
}

// NewMemoryIssueRepository returns a process-local store, used by tests and STORAGE_DRIVER=memory.
func NewMemoryIssueRepository() IssueRepository {
	return &memoryIssueRepository{projects: make(map[string]map[string]*memoryEntry)}
}

func (r *memoryIssueRepository) List(ctx context.Context, project string, filter domain.IssueFilter) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*memoryEntry, 0, len(r.projects[project]))
	for _, entry := range r.projects[project] {
		if filter.Matches(&entry.issue) {
			entries = append(entries, entry)
		}
	}
	// insertion order stands in for the natural order of a collection scan
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.issue.UpdatedOn.Equal(b.issue.UpdatedOn) {
			return a.issue.UpdatedOn.After(b.issue.UpdatedOn)
		}
		return a.seq < b.seq
	})

	issues := make([]domain.Issue, 0, len(entries))
	for _, entry := range entries {
		issues = append(issues, entry.issue)
	}
	return issues, nil
}

func (r *memoryIssueRepository) Create(ctx context.Context, project string, issue *domain.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	issue.ID = domain.NewID()
	bucket, ok := r.projects[project]
	if !ok {
		bucket = make(map[string]*memoryEntry)
		r.projects[project] = bucket
	}
	r.seq++
	bucket[issue.ID] = &memoryEntry{issue: *issue, seq: r.seq}
	return nil
}

func (r *memoryIssueRepository) Update(ctx context.Context, project, id string, changes domain.IssueChanges) (*domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.projects[project][id]
	if !ok {
		return nil, ErrIssueNotFound
	}
	changes.Apply(&entry.issue)
	updated := entry.issue
	return &updated, nil
}

func (r *memoryIssueRepository) Delete(ctx context.Context, project, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.projects[project]
	if _, ok := bucket[id]; !ok {
		return ErrIssueNotFound
	}
	delete(bucket, id)
	return nil
}

func (r *memoryIssueRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
