package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/data/repos/testutil"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/search"
)

type harness struct {
	ctx   context.Context
	tx    *gorm.DB
	dbc   dbctx.Context
	repos repos.Set
	guard *authz.Guard
	store *fakeStore
	index *fakeIndex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	guard, err := authz.NewGuard()
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return &harness{
		ctx:   ctx,
		tx:    tx,
		dbc:   dbctx.Context{Ctx: ctx, Tx: tx},
		repos: repos.New(tx, testutil.Logger(t)),
		guard: guard,
		store: newFakeStore(),
		index: &fakeIndex{},
	}
}

func detective() authz.Principal {
	return authz.Principal{Subject: "det-1", Roles: []string{domain.RoleDetective}}
}

func officer(dept string) authz.Principal {
	return authz.Principal{Subject: "off-1", Roles: []string{domain.RoleCaseOfficer}, Department: dept}
}

func prosecutor() authz.Principal {
	return authz.Principal{Subject: "pros-1", Roles: []string{domain.RoleProsecutor}}
}

func adminOnly() authz.Principal {
	return authz.Principal{Subject: "admin-1", Roles: []string{domain.RoleAdmin}}
}

type fakeStore struct {
	mu         sync.Mutex
	objects    map[string]bool
	signErr    error
	existsErr  error
	prefixErr  map[string]error
	deleted    []string
	lastTTL    time.Duration
	lastCT     string
	lastMethod string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]bool{}, prefixErr: map[string]error{}}
}

func (f *fakeStore) put(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = true
}

func (f *fakeStore) SignedWriteURL(ctx context.Context, path, contentType string, ttl time.Duration) (string, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signErr != nil {
		return "", time.Time{}, f.signErr
	}
	f.lastTTL, f.lastCT, f.lastMethod = ttl, contentType, "PUT"
	return "https://storage.test/put/" + path, time.Now().Add(ttl).UTC(), nil
}

func (f *fakeStore) SignedReadURL(ctx context.Context, path string, ttl time.Duration) (string, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTTL, f.lastMethod = ttl, "GET"
	return "https://storage.test/get/" + path, time.Now().Add(ttl).UTC(), nil
}

func (f *fakeStore) Exists(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.objects[path], nil
}

func (f *fakeStore) ObjectURL(path string) string {
	return "gs://test-bucket/" + path
}

func (f *fakeStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.prefixErr[prefix]; err != nil {
		return 0, err
	}
	f.deleted = append(f.deleted, prefix)
	n := 0
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			delete(f.objects, k)
			n++
		}
	}
	return n, nil
}

type fakeIndex struct {
	mu        sync.Mutex
	published []domain.SearchDocument
	removed   []string
	removeErr error
	lastQuery search.Query
	result    *search.Result
}

func (f *fakeIndex) Publish(ctx context.Context, doc domain.SearchDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, doc)
	return nil
}

func (f *fakeIndex) Remove(ctx context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, ids...)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, q search.Query) (*search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	if f.result != nil {
		return f.result, nil
	}
	return &search.Result{Documents: []domain.SearchDocument{}}, nil
}

var errBoom = errors.New("boom")
