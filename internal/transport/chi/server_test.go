package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/domain"
	"github.com/silverpath-kr/silverpath/internal/domain/namespace"
	"github.com/silverpath-kr/silverpath/internal/domain/route"
	exploreuc "github.com/silverpath-kr/silverpath/internal/usecase/explore"
	healthuc "github.com/silverpath-kr/silverpath/internal/usecase/health"
)

type stubPipeline struct {
	qc       *route.Context
	err      error
	gotQuery string
	gotHint  *route.Location
}

func (p *stubPipeline) Process(_ context.Context, query string, hint *route.Location) (*route.Context, error) {
	p.gotQuery = query
	p.gotHint = hint
	return p.qc, p.err
}

type stubExplorer struct {
	res         exploreuc.Result
	gotCity     string
	gotDistrict string
}

func (e *stubExplorer) Explore(_ context.Context, city, district string) exploreuc.Result {
	e.gotCity = city
	e.gotDistrict = district
	return e.res
}

type stubHealth struct {
	report healthuc.Report
}

func (h *stubHealth) Check(context.Context) healthuc.Report { return h.report }

func testCatalog(t *testing.T) namespace.Catalog {
	t.Helper()
	job, err := namespace.New("seoul_job", "서울 노인 일자리", "서울특별시", "job", true, false)
	if err != nil {
		t.Fatalf("namespace: %v", err)
	}
	workout, err := namespace.New("workout", "시니어 운동 콘텐츠", "", "", false, false)
	if err != nil {
		t.Fatalf("namespace: %v", err)
	}
	cat, err := namespace.NewCatalog([]namespace.Namespace{job, workout})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func newTestServer(t *testing.T, p Pipeline, e Explorer, h HealthChecker) *Server {
	t.Helper()
	if p == nil {
		p = &stubPipeline{qc: route.NewContext("")}
	}
	if e == nil {
		e = &stubExplorer{}
	}
	if h == nil {
		h = &stubHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	return NewServer(p, e, h, testCatalog(t), zap.NewNop())
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestQuery_SearchResults(t *testing.T) {
	qc := route.NewContext("강남구 노인 일자리 알려줘")
	qc.NamespaceKey = "seoul_job"
	qc.Confidence = 0.9
	qc.Location = &route.Location{City: "서울특별시", Region: "강남구"}
	qc.Scope = []string{"강남구", "서초구"}
	qc.Hits = []route.Hit{
		route.NewHit("doc-1", 0.91, "시니어 채용 공고", "강남구", "구청 일자리 안내"),
		route.NewHit("doc-2", 0.84, "노인 일자리 박람회", "서초구", "박람회 일정"),
	}
	p := &stubPipeline{qc: qc}
	srv := newTestServer(t, p, nil, nil)

	rr := postJSON(t, srv.Query, `{"query":"강남구 노인 일자리 알려줘"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	var resp queryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results: got %d, want 2", len(resp.Results))
	}
	if resp.Results[0].ID != "doc-1" || resp.Results[0].Score != 0.91 {
		t.Errorf("first result: got %+v", resp.Results[0])
	}
	if resp.Namespace != "seoul_job" || resp.Confidence != 0.9 {
		t.Errorf("classification echo: got %q / %v", resp.Namespace, resp.Confidence)
	}
	if resp.DistrictInfo == nil {
		t.Fatal("district_info missing")
	}
	if resp.DistrictInfo.TargetDistrict != "강남구" {
		t.Errorf("target_district: got %q", resp.DistrictInfo.TargetDistrict)
	}
	if len(resp.DistrictInfo.DistrictsSearched) != 2 {
		t.Errorf("districts_searched: got %v", resp.DistrictInfo.DistrictsSearched)
	}
	if resp.DistrictInfo.RegionType != "seoul" {
		t.Errorf("region_type: got %q", resp.DistrictInfo.RegionType)
	}
	if resp.Meta.UsedFallback {
		t.Error("used_fallback should be false")
	}
}

func TestQuery_FallbackAnswer(t *testing.T) {
	qc := route.NewContext("오늘 기분이 어때")
	qc.Confidence = 0.1
	qc.UsedFallback = true
	qc.Answer = "말동무가 되어드릴게요."
	qc.Hits = []route.Hit{
		route.NewHit("llm-response", 1.0, "AI 응답", "일반 정보", qc.Answer),
	}
	srv := newTestServer(t, &stubPipeline{qc: qc}, nil, nil)

	rr := postJSON(t, srv.Query, `{"query":"오늘 기분이 어때"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}

	var resp queryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Meta.UsedFallback {
		t.Error("used_fallback should be true")
	}
	if resp.Meta.Note == "" {
		t.Error("fallback note missing")
	}
	if resp.DistrictInfo != nil {
		t.Error("district_info should be absent without a namespace")
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "llm-response" {
		t.Errorf("results: got %+v", resp.Results)
	}
}

func TestQuery_RegionAgnosticNamespace(t *testing.T) {
	qc := route.NewContext("무릎에 좋은 스트레칭")
	qc.NamespaceKey = "workout"
	qc.Confidence = 0.95
	qc.Hits = []route.Hit{route.NewHit("w-1", 0.8, "스트레칭", "운동", "내용")}
	srv := newTestServer(t, &stubPipeline{qc: qc}, nil, nil)

	rr := postJSON(t, srv.Query, `{"query":"무릎에 좋은 스트레칭"}`)

	var resp queryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DistrictInfo == nil {
		t.Fatal("district_info missing")
	}
	if resp.DistrictInfo.RegionType != "other" {
		t.Errorf("region_type: got %q, want other", resp.DistrictInfo.RegionType)
	}
}

func TestQuery_LocationHintForwarded(t *testing.T) {
	p := &stubPipeline{qc: route.NewContext("근처 복지관 알려줘")}
	srv := newTestServer(t, p, nil, nil)

	postJSON(t, srv.Query, `{"query":"근처 복지관 알려줘","city":"서울특별시","district":"강남구"}`)

	if p.gotHint == nil {
		t.Fatal("hint not forwarded")
	}
	if p.gotHint.City != "서울특별시" || p.gotHint.Region != "강남구" {
		t.Errorf("hint: got %+v", p.gotHint)
	}
}

func TestQuery_EmptyQuery_400(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	for _, body := range []string{`{}`, `{"query":"   "}`, `not json`} {
		rr := postJSON(t, srv.Query, body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: got %d, want %d", body, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestQuery_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   errorCode
	}{
		{"scope required", domain.ErrScopeRequired, http.StatusUnprocessableEntity, codeScopeRequired},
		{"collaborator down", domain.ErrCollaboratorUnavailable, http.StatusBadGateway, codeUpstreamUnavailable},
		{"malformed model output", domain.ErrMalformedModelResponse, http.StatusBadGateway, codeUpstreamUnavailable},
		{"unexpected", domain.ErrNamespaceUnknown, http.StatusInternalServerError, codeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubPipeline{qc: route.NewContext("q"), err: tt.err}
			srv := newTestServer(t, p, nil, nil)

			rr := postJSON(t, srv.Query, `{"query":"건강보험 알려줘"}`)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}

			var errResp errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != tt.wantCode {
				t.Errorf("code: got %s, want %s", errResp.Code, tt.wantCode)
			}
		})
	}
}

func TestExplore_NoLocation(t *testing.T) {
	srv := newTestServer(t, nil, &stubExplorer{}, nil)

	rr := postJSON(t, srv.Explore, `{}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}

	var resp exploreResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status: got %q", resp.Status)
	}
	if resp.Message == "" {
		t.Error("message missing for empty location")
	}
	if resp.UserLocation != nil {
		t.Error("user_location should be absent")
	}
}

func TestExplore_FullResult(t *testing.T) {
	e := &stubExplorer{res: exploreuc.Result{
		City:            "서울특별시",
		District:        "강남구",
		Recommendations: []string{"강남구 노인복지관", "강남구 경로당"},
		PopularSearches: []string{"방문요양 서비스"},
		NearbyDistricts: []string{"서초구", "송파구", "강동구"},
		GeneratedQuery:  "서울특별시 강남구의 시니어 일자리 정보",
		Category:        "일자리",
		Response: &exploreuc.QueryResponse{
			Previews: []exploreuc.Preview{
				{Title: "채용 공고", Category: "강남구", Content: "내용..."},
			},
		},
	}}
	srv := newTestServer(t, nil, e, nil)

	rr := postJSON(t, srv.Explore, `{"userCity":"서울특별시","userDistrict":"강남구"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if e.gotCity != "서울특별시" || e.gotDistrict != "강남구" {
		t.Errorf("explorer args: got %q / %q", e.gotCity, e.gotDistrict)
	}

	var resp exploreResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserLocation == nil || resp.UserLocation.District != "강남구" {
		t.Errorf("user_location: got %+v", resp.UserLocation)
	}
	if len(resp.NearbyDistricts) != 3 {
		t.Errorf("nearby_districts: got %v", resp.NearbyDistricts)
	}
	if resp.QueryResponse == nil {
		t.Fatal("query_response missing")
	}
	if resp.QueryResponse.Type != "pinecone" {
		t.Errorf("type: got %q", resp.QueryResponse.Type)
	}
	if resp.QueryResponse.Category != "일자리" {
		t.Errorf("category: got %q", resp.QueryResponse.Category)
	}
	if len(resp.QueryResponse.Results) != 1 {
		t.Errorf("results: got %v", resp.QueryResponse.Results)
	}
}

func TestExplore_FallbackAnswer(t *testing.T) {
	e := &stubExplorer{res: exploreuc.Result{
		City:            "경기도",
		District:        "수원시",
		Recommendations: []string{"수원시 노인복지시설"},
		Category:        "문화",
		GeneratedQuery:  "경기도 수원시의 문화 정보",
		Response:        &exploreuc.QueryResponse{Fallback: true, Content: "문화 행사를 안내해 드릴게요."},
	}}
	srv := newTestServer(t, nil, e, nil)

	rr := postJSON(t, srv.Explore, `{"userCity":"경기도","userDistrict":"수원시"}`)

	var resp exploreResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.QueryResponse == nil {
		t.Fatal("query_response missing")
	}
	if resp.QueryResponse.Type != "llm" {
		t.Errorf("type: got %q", resp.QueryResponse.Type)
	}
	if resp.QueryResponse.Content == "" {
		t.Error("content missing")
	}
	if len(resp.QueryResponse.Results) != 0 {
		t.Errorf("results should be empty, got %v", resp.QueryResponse.Results)
	}
}

func TestHealthCheck_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		report     healthuc.Report
		wantStatus int
	}{
		{
			"healthy",
			healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK}},
			http.StatusOK,
		},
		{
			"degraded",
			healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckError}},
			http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil, nil, &stubHealth{report: tt.report})

			req := httptest.NewRequest("GET", "/health", http.NoBody)
			rr := httptest.NewRecorder()
			srv.HealthCheck(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}

			var body struct {
				Status string                          `json:"status"`
				Checks map[string]healthuc.CheckResult `json:"checks"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body.Status != string(tt.report.Status) {
				t.Errorf("body status: got %q, want %q", body.Status, tt.report.Status)
			}
		})
	}
}
