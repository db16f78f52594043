// Package research looks up published evidence for a client's conditions.
// Lookups never fail a caller: a source that errors contributes an empty list.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/careplan-backend/internal/cache"
	"github.com/yungbote/careplan-backend/internal/config"
	"github.com/yungbote/careplan-backend/internal/observability"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
)

const (
	SourcePubMed         = "pubmed"
	SourceClinicalTrials = "clinicaltrials"

	cacheNamespace = "evidence"
)

type Article struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Journal string `json:"journal"`
	Year    string `json:"year"`
	URL     string `json:"url"`
}

type Trial struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Condition        string `json:"condition"`
	InterventionType string `json:"interventionType"`
	PrimaryOutcome   string `json:"primaryOutcome"`
	Phase            string `json:"phase"`
	StartDate        string `json:"startDate"`
	CompletionDate   string `json:"completionDate"`
	URL              string `json:"url"`
}

type Findings struct {
	PubmedArticles []Article `json:"pubmedArticles"`
	ClinicalTrials []Trial   `json:"clinicalTrials"`
}

// Empty reports whether no source returned anything.
func (f Findings) Empty() bool {
	return len(f.PubmedArticles) == 0 && len(f.ClinicalTrials) == 0
}

type Options struct {
	Config     config.ResearchConfig
	Log        *logger.Logger
	Metrics    *observability.Metrics
	Cache      cache.Cache
	HTTPClient *http.Client
}

type Service struct {
	pubmedBase string
	trialsURL  string
	apiKey     string
	maxResults int
	timeout    time.Duration

	log        *logger.Logger
	metrics    *observability.Metrics
	cache      cache.Cache
	httpClient *http.Client
}

func New(opts Options) (*Service, error) {
	cfg := opts.Config
	pubmedBase := strings.TrimRight(strings.TrimSpace(cfg.PubMedBaseURL), "/")
	trialsURL := strings.TrimSpace(cfg.ClinicalTrialURL)
	if pubmedBase == "" || trialsURL == "" {
		return nil, errors.New("research: pubmed and clinical trials urls required")
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        20,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		}}
	}
	return &Service{
		pubmedBase: pubmedBase,
		trialsURL:  trialsURL,
		apiKey:     strings.TrimSpace(cfg.PubMedAPIKey),
		maxResults: maxResults,
		timeout:    timeout,
		log:        log,
		metrics:    opts.Metrics,
		cache:      opts.Cache,
		httpClient: hc,
	}, nil
}

// Lookup queries both sources concurrently for conditions.
func (s *Service) Lookup(ctx context.Context, conditions string) Findings {
	q := strings.Join(strings.Fields(conditions), " ")
	out := Findings{PubmedArticles: []Article{}, ClinicalTrials: []Trial{}}
	if q == "" {
		return out
	}

	key := cache.Fingerprint(cacheNamespace, q)
	if cached, ok := s.cached(ctx, key); ok {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var g errgroup.Group
	pubmedOK, trialsOK := false, false
	g.Go(func() error {
		articles, err := s.searchPubMed(ctx, q)
		if err != nil {
			s.log.Ctx(ctx).Warn("PubMed lookup failed", "error", err)
			s.metrics.IncResearch(SourcePubMed, "error")
			return nil
		}
		s.metrics.IncResearch(SourcePubMed, "ok")
		out.PubmedArticles = articles
		pubmedOK = true
		return nil
	})
	g.Go(func() error {
		trials, err := s.searchClinicalTrials(ctx, q)
		if err != nil {
			s.log.Ctx(ctx).Warn("ClinicalTrials lookup failed", "error", err)
			s.metrics.IncResearch(SourceClinicalTrials, "error")
			return nil
		}
		s.metrics.IncResearch(SourceClinicalTrials, "ok")
		out.ClinicalTrials = trials
		trialsOK = true
		return nil
	})
	_ = g.Wait()

	// partial results are not cached so a failed source is retried next time
	if pubmedOK && trialsOK {
		s.store(ctx, key, out)
	}
	return out
}

func (s *Service) cached(ctx context.Context, key string) (Findings, bool) {
	if s.cache == nil {
		return Findings{}, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return Findings{}, false
	}
	var f Findings
	if err := json.Unmarshal(raw, &f); err != nil {
		return Findings{}, false
	}
	return f, true
}

func (s *Service) store(ctx context.Context, key string, f Findings) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.log.Ctx(ctx).Warn("evidence cache store failed", "error", err)
	}
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryArticle struct {
	UID     string `json:"uid"`
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	FullJournalName string `json:"fulljournalname"`
	PubDate         string `json:"pubdate"`
}

func (s *Service) searchPubMed(ctx context.Context, q string) ([]Article, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", q)
	params.Set("retmax", fmt.Sprint(s.maxResults))
	params.Set("format", "json")
	if s.apiKey != "" {
		params.Set("api_key", s.apiKey)
	}
	var search esearchResponse
	if err := s.getJSON(ctx, s.pubmedBase+"/esearch.fcgi?"+params.Encode(), &search); err != nil {
		return nil, err
	}
	ids := search.Result.IDList
	if len(ids) == 0 {
		return []Article{}, nil
	}

	params = url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("format", "json")
	if s.apiKey != "" {
		params.Set("api_key", s.apiKey)
	}
	var summary struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := s.getJSON(ctx, s.pubmedBase+"/esummary.fcgi?"+params.Encode(), &summary); err != nil {
		return nil, err
	}

	out := make([]Article, 0, len(ids))
	for _, id := range ids {
		raw, ok := summary.Result[id]
		if !ok {
			continue
		}
		var a esummaryArticle
		if err := json.Unmarshal(raw, &a); err != nil || a.UID == "" {
			continue
		}
		names := make([]string, 0, len(a.Authors))
		for _, au := range a.Authors {
			names = append(names, au.Name)
		}
		year, _, _ := strings.Cut(a.PubDate, " ")
		out = append(out, Article{
			ID:      a.UID,
			Title:   a.Title,
			Authors: strings.Join(names, ", "),
			Journal: a.FullJournalName,
			Year:    year,
			URL:     "https://pubmed.ncbi.nlm.nih.gov/" + a.UID + "/",
		})
	}
	return out, nil
}

var trialFields = []string{
	"NCTId",
	"BriefTitle",
	"Condition",
	"InterventionType",
	"PrimaryOutcomeMeasure",
	"Phase",
	"StartDate",
	"CompletionDate",
}

type studyFieldsResponse struct {
	Response struct {
		StudyFields []map[string][]string `json:"StudyFields"`
	} `json:"StudyFieldsResponse"`
}

func (s *Service) searchClinicalTrials(ctx context.Context, q string) ([]Trial, error) {
	params := url.Values{}
	params.Set("expr", q)
	params.Set("fields", strings.Join(trialFields, ","))
	params.Set("fmt", "json")
	params.Set("max_rnk", fmt.Sprint(s.maxResults))

	var resp studyFieldsResponse
	if err := s.getJSON(ctx, s.trialsURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	out := make([]Trial, 0, len(resp.Response.StudyFields))
	for _, st := range resp.Response.StudyFields {
		id := first(st["NCTId"])
		if id == "" {
			continue
		}
		out = append(out, Trial{
			ID:               id,
			Title:            first(st["BriefTitle"]),
			Condition:        strings.Join(st["Condition"], ", "),
			InterventionType: strings.Join(st["InterventionType"], ", "),
			PrimaryOutcome:   first(st["PrimaryOutcomeMeasure"]),
			Phase:            first(st["Phase"]),
			StartDate:        first(st["StartDate"]),
			CompletionDate:   first(st["CompletionDate"]),
			URL:              "https://clinicaltrials.gov/study/" + id,
		})
	}
	return out, nil
}

func (s *Service) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("%s: status %d", req.URL.Host, resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(out)
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
