package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	alertservice "ledgergate/internal/alert/service"
	alertstore "ledgergate/internal/alert/store"
	"ledgergate/internal/audit"
	authservice "ledgergate/internal/authority/service"
	authstore "ledgergate/internal/authority/store"
	blservice "ledgergate/internal/blacklist/service"
	blstore "ledgergate/internal/blacklist/store"
	enforcementservice "ledgergate/internal/enforcement/service"
	idservice "ledgergate/internal/identity/service"
	idstore "ledgergate/internal/identity/store"
	"ledgergate/internal/ledger"
	"ledgergate/internal/platform/logger"
	policyservice "ledgergate/internal/policy/service"
	"ledgergate/internal/reserve/feed"
	reserveservice "ledgergate/internal/reserve/service"
	"ledgergate/internal/token"
	"ledgergate/pkg/domain"
)

const superPrincipal = "issuer-root"

type RouterSuite struct {
	suite.Suite
	server    *httptest.Server
	validator *token.Validator
	ledger    *ledger.InMemoryLedger
}

func (s *RouterSuite) SetupTest() {
	log := logger.New()
	s.validator = token.NewValidator("test-signing-key")
	s.ledger = ledger.NewInMemory()

	auditor := audit.NewPublisher(audit.NewInMemoryStore())
	authority := authservice.New(authstore.NewInMemoryStore(), auditor, superPrincipal)
	identity := idservice.New(idstore.NewInMemoryStore(), authority, auditor,
		[]string{"DE", "FR"}, 365*24*time.Hour)
	blacklist := blservice.New(blstore.NewInMemoryStore(), authority, identity, auditor)
	alerts := alertservice.New(alertstore.NewInMemoryStore(), authority, blacklist, auditor)
	reserve := reserveservice.New(feed.NewInMemoryFeed(), auditor, superPrincipal, 24*time.Hour)
	policy := policyservice.New(identity, blacklist, reserve,
		policyservice.Limits{Level1Max: 10_000_00, Level2Max: 100_000_00})
	enforcement := enforcementservice.New(authority, identity, blacklist, s.ledger, auditor)

	router := NewRouter(Services{
		Identity:    identity,
		Authority:   authority,
		Blacklist:   blacklist,
		Alert:       alerts,
		Policy:      policy,
		Enforcement: enforcement,
		Reserve:     reserve,
		Auditor:     auditor,
	}, s.validator, nil, log)
	s.server = httptest.NewServer(router)
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) request(method, path, bearer string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) decode(resp *http.Response, dst any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(dst))
}

func (s *RouterSuite) bearer(principal string) string {
	tok, err := s.validator.Issue(principal, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) TestHealthz() {
	resp := s.request(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func (s *RouterSuite) TestRegisterIdentityOpenEndpoint() {
	resp := s.request(http.MethodPost, "/v1/identity/register", "", map[string]any{
		"user":              "user-1",
		"jurisdiction_code": "DE",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var body map[string]any
	s.decode(resp, &body)
	s.Equal("pending", body["status"])
}

func (s *RouterSuite) TestUnsupportedJurisdictionIs403() {
	resp := s.request(http.MethodPost, "/v1/identity/register", "", map[string]any{
		"user":              "user-1",
		"jurisdiction_code": "US",
	})
	defer resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)

	var body map[string]any
	s.decode(resp, &body)
	s.Equal("jurisdiction_not_supported", body["error"])
}

func (s *RouterSuite) TestMutationsRequireBearerToken() {
	resp := s.request(http.MethodPost, "/v1/identity/status", "", map[string]any{
		"user": "user-1", "status": "verified", "level": 1,
	})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (s *RouterSuite) TestVerificationRoundTrip() {
	// Super authority registers a verification provider.
	resp := s.request(http.MethodPost, "/v1/authorities", s.bearer(superPrincipal), map[string]any{
		"principal":    "provider-1",
		"authority_id": "IDNOW-DE",
		"powers":       []string{"request_user_info"},
	})
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodPost, "/v1/identity/register", "", map[string]any{
		"user": "user-1", "jurisdiction_code": "DE",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodPost, "/v1/identity/status", s.bearer("provider-1"), map[string]any{
		"user": "user-1", "status": "verified", "level": 2,
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	var body map[string]any
	s.decode(resp, &body)
	s.Equal("verified", body["status"])
	s.EqualValues(2, body["effective_level"])

	resp = s.request(http.MethodGet, "/v1/identity/verified-count", "", nil)
	var count map[string]int64
	s.decode(resp, &count)
	s.Equal(int64(1), count["verified_users"])
}

func (s *RouterSuite) TestPolicyEvaluateReturnsDenyWith200() {
	resp := s.request(http.MethodPost, "/v1/policy/evaluate", "", map[string]any{
		"kind": "transfer", "sender": "ghost-a", "receiver": "ghost-b",
		"amount": 20_000_00,
	})
	s.Equal(http.StatusOK, resp.StatusCode)

	var body map[string]any
	s.decode(resp, &body)
	s.Equal("deny", body["status"])
	s.Equal("transfer_limit_exceeded", body["reason"])
}

func (s *RouterSuite) TestBlacklistStatusIsPublic() {
	resp := s.request(http.MethodGet, "/v1/blacklist/anyone/status", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	var body map[string]any
	s.decode(resp, &body)
	s.Equal(false, body["active"])
}

func (s *RouterSuite) TestFreezeFlowOverHTTP() {
	// Grant an authority freeze power, blacklist a user, then freeze the
	// user's account.
	resp := s.request(http.MethodPost, "/v1/authorities", s.bearer(superPrincipal), map[string]any{
		"principal":    "enforcer-1",
		"authority_id": "FIU-DE",
		"powers":       []string{"freeze_accounts", "block_transactions"},
	})
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodPost, "/v1/blacklist", s.bearer("enforcer-1"), map[string]any{
		"user": "suspect-1", "reason": "suspicious_activity", "action_type": "freeze",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	s.ledger.CreateAccount("acct-9", domain.UserID("suspect-1"), 500_00)

	resp = s.request(http.MethodPost, "/v1/enforcement/freeze", s.bearer("enforcer-1"), map[string]any{
		"account": "acct-9", "justification": "sanctions listing",
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The frozen account now denies transfers at the policy layer.
	resp = s.request(http.MethodPost, "/v1/policy/evaluate", "", map[string]any{
		"kind": "transfer", "sender": "suspect-1", "receiver": "other",
		"amount": 100, "sender_frozen": true,
	})
	var body map[string]any
	s.decode(resp, &body)
	s.Equal("deny", body["status"])
	s.Equal("account_frozen", body["reason"])
}

func (s *RouterSuite) TestReserveAttestationRoundTrip() {
	resp := s.request(http.MethodGet, "/v1/reserve/attestation", "", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodPost, "/v1/reserve/attestation", s.bearer(superPrincipal), map[string]any{
		"merkle_root":   "deadbeef",
		"proof_cid":     "bafyexample",
		"total_reserve": 1_000_000_00,
		"issued_supply": 250_000_00,
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(http.MethodGet, "/v1/reserve/attestation", "", nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	var body map[string]any
	s.decode(resp, &body)
	s.Equal("bafyexample", body["proof_cid"])
}
