// Package gitrepo keeps the revision history of each sheet in its own git
// repository. Every explicit save commits the sheet record.
package gitrepo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const recordFile = "record.json"

var ErrNoHistory = errors.New("sheet has no history")

type Revision struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	now     func() time.Time
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// CommitRecord writes record to the sheet's repository and commits it,
// creating the repository on first use. Committing an unchanged record
// returns the current head instead of an empty commit.
func (s *Service) CommitRecord(sheetID string, record []byte, author, message string) (Revision, error) {
	lock := s.sheetLock(sheetID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(sheetID)
	if err != nil {
		return Revision{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Revision{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := normalizeRecord(record)
	if err != nil {
		return Revision{}, err
	}
	if err := os.WriteFile(filepath.Join(s.repoPath(sheetID), recordFile), payload, 0o644); err != nil {
		return Revision{}, fmt.Errorf("write %s: %w", recordFile, err)
	}
	if _, err := worktree.Add(recordFile); err != nil {
		return Revision{}, fmt.Errorf("git add record: %w", err)
	}

	if strings.TrimSpace(author) == "" {
		author = "Inspection"
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@inspection.local", sanitizeEmail(author)),
			When:  s.now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		head, headErr := repo.Head()
		if headErr != nil {
			return Revision{}, fmt.Errorf("resolve head: %w", headErr)
		}
		hash = head.Hash()
	} else if err != nil {
		return Revision{}, fmt.Errorf("commit record: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, fmt.Errorf("read commit object: %w", err)
	}
	return toRevision(commitObj), nil
}

// History lists revisions newest first.
func (s *Service) History(sheetID string, limit int) ([]Revision, error) {
	lock := s.sheetLock(sheetID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(sheetID)
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoHistory, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Revision, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toRevision(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// RecordAt returns the record committed at hash, which may be abbreviated.
func (s *Service) RecordAt(sheetID, hash string) ([]byte, Revision, error) {
	lock := s.sheetLock(sheetID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(sheetID)
	if err != nil {
		return nil, Revision{}, err
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return nil, Revision{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return nil, Revision{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	record, err := readRecordFromCommit(commitObj)
	if err != nil {
		return nil, Revision{}, err
	}
	return record, toRevision(commitObj), nil
}

// Remove deletes the sheet's repository.
func (s *Service) Remove(sheetID string) error {
	lock := s.sheetLock(sheetID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.repoPath(sheetID)); err != nil {
		return fmt.Errorf("remove repo: %w", err)
	}
	return nil
}

func (s *Service) repoPath(sheetID string) string {
	return filepath.Join(s.baseDir, filepath.Base(filepath.Clean("/"+sheetID)))
}

func (s *Service) sheetLock(sheetID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[sheetID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[sheetID] = lock
	return lock
}

func (s *Service) open(sheetID string) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repoPath(sheetID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

func (s *Service) openOrInit(sheetID string) (*git.Repository, error) {
	path := s.repoPath(sheetID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func readRecordFromCommit(commitObj *object.Commit) ([]byte, error) {
	file, err := commitObj.File(recordFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", recordFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open record reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read record bytes: %w", err)
	}
	return data, nil
}

// normalizeRecord indents the record so revisions diff line by line.
func normalizeRecord(record []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, record, "", "  "); err != nil {
		return nil, fmt.Errorf("normalize record: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func toRevision(commitObj *object.Commit) Revision {
	return Revision{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
