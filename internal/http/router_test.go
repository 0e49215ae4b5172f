package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/evidence-backend/internal/authz"
	"github.com/yungbote/evidence-backend/internal/data/repos"
	"github.com/yungbote/evidence-backend/internal/data/repos/testutil"
	"github.com/yungbote/evidence-backend/internal/domain"
	"github.com/yungbote/evidence-backend/internal/extraction"
	httpH "github.com/yungbote/evidence-backend/internal/http/handlers"
	httpMW "github.com/yungbote/evidence-backend/internal/http/middleware"
	"github.com/yungbote/evidence-backend/internal/ingestion"
	"github.com/yungbote/evidence-backend/internal/platform/dbctx"
	"github.com/yungbote/evidence-backend/internal/platform/identity"
	"github.com/yungbote/evidence-backend/internal/search"
	"github.com/yungbote/evidence-backend/internal/services"
)

type tokenVerifier map[string]*identity.Claims

func (v tokenVerifier) Verify(ctx context.Context, token string) (*identity.Claims, error) {
	if c, ok := v[token]; ok {
		return c, nil
	}
	return nil, identity.ErrInvalidToken
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStore) SignedWriteURL(ctx context.Context, path, contentType string, ttl time.Duration) (string, time.Time, error) {
	return "https://storage.test/put/" + path, time.Now().Add(ttl), nil
}

func (s *memStore) SignedReadURL(ctx context.Context, path string, ttl time.Duration) (string, time.Time, error) {
	return "https://storage.test/get/" + path, time.Now().Add(ttl), nil
}

func (s *memStore) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok, nil
}

func (s *memStore) Download(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[path]
	if !ok {
		return nil, errors.New("object not found")
	}
	return b, nil
}

func (s *memStore) ObjectURL(path string) string { return "gs://test-bucket/" + path }

func (s *memStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			delete(s.objects, k)
			n++
		}
	}
	return n, nil
}

type memIndex struct {
	mu   sync.Mutex
	docs map[string]domain.SearchDocument
}

func (m *memIndex) Publish(ctx context.Context, doc domain.SearchDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *memIndex) Remove(ctx context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, id)
	}
	return nil
}

func (m *memIndex) Query(ctx context.Context, q search.Query) (*search.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &search.Result{Documents: []domain.SearchDocument{}}
	for _, d := range m.docs {
		if q.Department != "" && d.Department != q.Department {
			continue
		}
		if q.Text != "" && !strings.Contains(d.ExtractedText, q.Text) {
			continue
		}
		out.Documents = append(out.Documents, d)
	}
	out.Total = int64(len(out.Documents))
	return out, nil
}

type server struct {
	t      *testing.T
	engine *gin.Engine
	tx     *gorm.DB
	store  *memStore
	index  *memIndex
}

const (
	tokenDetective = "tok-detective"
	tokenOfficer   = "tok-officer"
	tokenAdmin     = "tok-admin"
)

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	log := testutil.Logger(t)
	rs := repos.New(tx, log)

	testutil.SeedDepartment(t, ctx, tx, "homicide")
	testutil.SeedDepartment(t, ctx, tx, "fraud")
	homicide := "homicide"
	testutil.SeedUserRecord(t, ctx, tx, "officer-1", &homicide, domain.RoleCaseOfficer)

	guard, err := authz.NewGuard()
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	store := &memStore{objects: map[string][]byte{}}
	index := &memIndex{docs: map[string]domain.SearchDocument{}}

	resolver := services.NewPrincipalResolver(log, rs.Users)
	cascade := services.NewCascadeOrchestrator(log, guard, rs, store, index, nil)
	uploads := services.NewUploadCoordinator(log, guard, rs, store, index, services.UploadConfig{WriteURLTTL: 10 * time.Minute})
	evidence := services.NewEvidenceService(log, guard, rs, store, index, cascade, nil, 0)
	pipeline := ingestion.NewPipeline(log, rs.Evidence, extraction.NewService(log, store, nil, nil, nil, nil), index, nil)

	verifier := tokenVerifier{
		tokenDetective: {Subject: "detective-1", Roles: []string{domain.RoleDetective}},
		tokenOfficer:   {Subject: "officer-1", Roles: []string{domain.RoleCaseOfficer}},
		tokenAdmin:     {Subject: "admin-1", Roles: []string{domain.RoleAdmin}},
	}

	engine := NewRouter(RouterConfig{
		Log:               log,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, verifier, resolver),
		HealthHandler:     httpH.NewHealthHandler(),
		UserHandler:       httpH.NewUserHandler(log, services.NewUserService(log, guard, rs, resolver)),
		DepartmentHandler: httpH.NewDepartmentHandler(log, services.NewDepartmentService(log, guard, rs, cascade)),
		CaseHandler:       httpH.NewCaseHandler(log, services.NewCaseService(log, guard, rs, cascade)),
		EvidenceHandler:   httpH.NewEvidenceHandler(log, uploads, evidence),
		EventHandler:      httpH.NewEventHandler(log, ingestion.NewInlineDispatcher(log, pipeline), "push-secret"),
	})
	return &server{t: t, engine: engine, tx: tx, store: store, index: index}
}

func (s *server) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func field(t *testing.T, m map[string]any, keys ...string) any {
	t.Helper()
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			t.Fatalf("field %v: %q is not an object in %v", keys, k, m)
		}
		cur = obj[k]
	}
	return cur
}

func TestHealthcheckIsPublic(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(http.MethodGet, "/healthcheck", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, rec.Code)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	s := newServer(t)
	for _, tok := range []string{"", "not-a-token"} {
		rec, body := s.do(http.MethodGet, "/api/cases", tok, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q status: want=%d got=%d", tok, http.StatusUnauthorized, rec.Code)
		}
		if got := field(t, body, "error", "code"); got != "unauthenticated" {
			t.Fatalf("token %q code: want=unauthenticated got=%v", tok, got)
		}
	}
}

func TestOfficerWrongDepartmentIsForbidden(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(http.MethodPost, "/api/cases", tokenOfficer, map[string]any{"department": "fraud", "title": "Ledger"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: want=%d got=%d", http.StatusForbidden, rec.Code)
	}
	if got := field(t, body, "error", "reason"); got != string(authz.WrongDepartment) {
		t.Fatalf("reason: want=%s got=%v", authz.WrongDepartment, got)
	}
}

func TestValidationAndNotFoundMapping(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(http.MethodPost, "/api/cases", tokenDetective, map[string]any{"department": "homicide"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing title status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	rec, _ = s.do(http.MethodGet, "/api/cases/not-a-uuid", tokenDetective, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	rec, _ = s.do(http.MethodGet, "/api/cases/"+uuid.NewString(), tokenDetective, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown case status: want=%d got=%d", http.StatusNotFound, rec.Code)
	}
}

func storagePush(name string) []byte {
	data := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf(`{"name":%q,"bucket":"test-bucket","generation":"1"}`, name)))
	return []byte(fmt.Sprintf(`{"message":{"attributes":{"eventType":"OBJECT_FINALIZE","bucketId":"test-bucket","objectId":%q,"objectGeneration":"1"},"data":%q,"messageId":"1"},"subscription":"s"}`, name, data))
}

func (s *server) push(token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/events/storage?token="+token, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestUploadIngestSearchFlow(t *testing.T) {
	s := newServer(t)

	rec, body := s.do(http.MethodPost, "/api/cases", tokenOfficer, map[string]any{"department": "homicide", "title": "Harbor"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create case: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	caseID := field(t, body, "case", "id").(string)

	rec, body = s.do(http.MethodPost, "/api/cases/"+caseID+"/evidence/uploads", tokenOfficer, map[string]any{"fileName": "witness statement.txt", "contentType": "text/plain"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("initiate: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	evidenceID := field(t, body, "upload", "evidenceId").(string)
	blobPath := field(t, body, "upload", "blobPath").(string)
	if !strings.HasPrefix(field(t, body, "upload", "writeUrl").(string), "https://storage.test/put/") {
		t.Fatalf("writeUrl: unexpected %v", field(t, body, "upload", "writeUrl"))
	}

	// Confirm before the bytes land is a conflict.
	rec, _ = s.do(http.MethodPost, "/api/cases/"+caseID+"/evidence/"+evidenceID+"/confirm", tokenOfficer, map[string]any{"tags": []string{"Witness"}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("early confirm: want=%d got=%d", http.StatusConflict, rec.Code)
	}

	s.store.mu.Lock()
	s.store.objects[blobPath] = []byte("the boat left at midnight")
	s.store.mu.Unlock()

	if rec := s.push("wrong", storagePush(blobPath)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("push with wrong token: want=%d got=%d", http.StatusUnauthorized, rec.Code)
	}
	if rec := s.push("push-secret", storagePush(blobPath)); rec.Code != http.StatusNoContent {
		t.Fatalf("push: want=%d got=%d body=%s", http.StatusNoContent, rec.Code, rec.Body.String())
	}
	// Redelivery is acknowledged without reprocessing.
	if rec := s.push("push-secret", storagePush(blobPath)); rec.Code != http.StatusNoContent {
		t.Fatalf("redelivery: want=%d got=%d", http.StatusNoContent, rec.Code)
	}

	rec, body = s.do(http.MethodGet, "/api/cases/"+caseID+"/evidence/"+evidenceID, tokenOfficer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get evidence: want=%d got=%d", http.StatusOK, rec.Code)
	}
	if got := field(t, body, "evidence", "status"); got != string(domain.EvidenceStatusCompleted) {
		t.Fatalf("status: want=%s got=%v", domain.EvidenceStatusCompleted, got)
	}

	rec, _ = s.do(http.MethodPost, "/api/cases/"+caseID+"/evidence/"+evidenceID+"/confirm", tokenOfficer, map[string]any{"tags": []string{"Witness"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}

	rec, body = s.do(http.MethodGet, "/api/search?q=midnight", tokenOfficer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: want=%d got=%d", http.StatusOK, rec.Code)
	}
	if got := field(t, body, "total"); got != float64(1) {
		t.Fatalf("search total: want=1 got=%v", got)
	}

	rec, body = s.do(http.MethodGet, "/api/cases/"+caseID+"/evidence/"+evidenceID+"/download", tokenOfficer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download: want=%d got=%d", http.StatusOK, rec.Code)
	}
	if !strings.HasSuffix(field(t, body, "download", "url").(string), blobPath) {
		t.Fatalf("download url: unexpected %v", field(t, body, "download", "url"))
	}

	rec, body = s.do(http.MethodDelete, "/api/cases/"+caseID, tokenDetective, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete case: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if got := field(t, body, "report", "deletedEvidence"); got != float64(1) {
		t.Fatalf("deletedEvidence: want=1 got=%v", got)
	}
	if len(s.index.docs) != 0 {
		t.Fatalf("index docs after cascade: want=0 got=%d", len(s.index.docs))
	}
	if ok, _ := s.store.Exists(context.Background(), blobPath); ok {
		t.Fatalf("blob survived cascade delete")
	}
	ev, err := repos.New(s.tx, testutil.Logger(t)).Evidence.GetByID(dbctx.Context{Ctx: context.Background()}, uuid.MustParse(evidenceID))
	if err != nil || ev != nil {
		t.Fatalf("evidence row after cascade: got=%v err=%v", ev, err)
	}
}

func TestStorageEventDropsDerivedAndMalformed(t *testing.T) {
	s := newServer(t)
	derived := domain.DerivedPrefix(uuid.New(), uuid.New()) + "output-1.json"
	for _, body := range [][]byte{storagePush(derived), []byte("{not json")} {
		if rec := s.push("push-secret", body); rec.Code != http.StatusNoContent {
			t.Fatalf("push: want=%d got=%d", http.StatusNoContent, rec.Code)
		}
	}
}

func TestUserAdministrationRequiresAdmin(t *testing.T) {
	s := newServer(t)
	rec, body := s.do(http.MethodPut, "/api/users/detective-2", tokenDetective, map[string]any{"roles": []string{"detective"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("detective upsert: want=%d got=%d", http.StatusForbidden, rec.Code)
	}
	if got := field(t, body, "error", "reason"); got != string(authz.MissingRole) {
		t.Fatalf("reason: want=%s got=%v", authz.MissingRole, got)
	}

	rec, _ = s.do(http.MethodPut, "/api/users/officer-2", tokenAdmin, map[string]any{"roles": []string{"case_officer"}, "department": "fraud"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin upsert: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	rec, body = s.do(http.MethodGet, "/api/users", tokenAdmin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list: want=%d got=%d", http.StatusOK, rec.Code)
	}
	if users, _ := field(t, body, "users").([]any); len(users) != 2 {
		t.Fatalf("users: want=2 got=%d", len(users))
	}

	rec, body = s.do(http.MethodGet, "/api/me", tokenOfficer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: want=%d got=%d", http.StatusOK, rec.Code)
	}
	if got := field(t, body, "me", "department"); got != "homicide" {
		t.Fatalf("me department: want=homicide got=%v", got)
	}
}
