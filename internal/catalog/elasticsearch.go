package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"study-abroad-engine/internal/models"
)

const (
	defaultIndex   = "universities"
	searchPageSize = 1000
)

// ElasticsearchProvider reads universities from an index whose documents are University JSON.
type ElasticsearchProvider struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewElasticsearchProvider(client *elasticsearch.Client, index string) *ElasticsearchProvider {
	if index == "" {
		index = defaultIndex
	}
	return &ElasticsearchProvider{client: client, index: index, size: searchPageSize}
}

func (p *ElasticsearchProvider) Name() string { return "elasticsearch" }

type getResponse struct {
	Found  bool              `json:"found"`
	Source models.University `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.University `json:"_source"`
			Sort   []interface{}     `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

func (p *ElasticsearchProvider) GetByID(ctx context.Context, id int64) (*models.University, error) {
	req := esapi.GetRequest{
		Index:      p.index,
		DocumentID: strconv.FormatInt(id, 10),
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if res.IsError() {
		return nil, responseError("get", res)
	}

	var doc getResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode elasticsearch document: %w", err)
	}
	if !doc.Found {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return &doc.Source, nil
}

func (p *ElasticsearchProvider) Search(ctx context.Context, text string) ([]models.University, error) {
	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if text = strings.TrimSpace(text); text != "" {
		query = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"name^3", "city"},
				"type":   "phrase_prefix",
			},
		}
	}
	hits, err := p.search(ctx, map[string]interface{}{"query": query})
	if err != nil {
		return nil, err
	}

	// phrase_prefix is looser than substring matching, so the result is narrowed to the
	// same contract as the other providers.
	out := make([]models.University, 0, len(hits))
	for _, u := range hits {
		if matchesText(u, text) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (p *ElasticsearchProvider) Filter(ctx context.Context, f Filter) ([]models.University, error) {
	pred, err := f.Compile()
	if err != nil {
		return nil, err
	}
	hits, err := p.search(ctx, BuildFilterQuery(f))
	if err != nil {
		return nil, err
	}
	out := make([]models.University, 0, len(hits))
	for _, u := range hits {
		if pred(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

// BuildFilterQuery pushes the numeric and type bounds of f into a bool filter. Country,
// field and expression matching stay in memory.
func BuildFilterQuery(f Filter) map[string]interface{} {
	filterClauses := []interface{}{}

	addRange := func(field string, bounds map[string]interface{}) {
		if len(bounds) > 0 {
			filterClauses = append(filterClauses, map[string]interface{}{
				"range": map[string]interface{}{field: bounds},
			})
		}
	}

	tuition := map[string]interface{}{}
	if f.MinTuition > 0 {
		tuition["gte"] = f.MinTuition
	}
	if f.MaxTuition > 0 {
		tuition["lte"] = f.MaxTuition
	}
	addRange("tuition_fee", tuition)

	if f.MaxCGPA > 0 {
		addRange("min_cgpa", map[string]interface{}{"lte": f.MaxCGPA})
	}
	if f.MaxGRE > 0 {
		addRange("min_gre", map[string]interface{}{"lte": f.MaxGRE})
	}
	if f.MaxIELTS > 0 {
		addRange("min_ielts", map[string]interface{}{"lte": f.MaxIELTS})
	}
	if f.MaxTOEFL > 0 {
		addRange("min_toefl", map[string]interface{}{"lte": f.MaxTOEFL})
	}

	ranking := map[string]interface{}{}
	if f.MinRanking > 0 {
		ranking["gte"] = f.MinRanking
	}
	if f.MaxRanking > 0 {
		ranking["lte"] = f.MaxRanking
	}
	addRange("ranking", ranking)

	acceptance := map[string]interface{}{}
	if f.MinAcceptanceRate > 0 {
		acceptance["gte"] = f.MinAcceptanceRate
	}
	if f.MaxAcceptanceRate > 0 {
		acceptance["lte"] = f.MaxAcceptanceRate
	}
	addRange("acceptance_rate", acceptance)

	if t := strings.TrimSpace(f.Type); t != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"match": map[string]interface{}{"type": t},
		})
	}

	if len(filterClauses) == 0 {
		return map[string]interface{}{"query": map[string]interface{}{"match_all": map[string]interface{}{}}}
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filterClauses},
		},
	}
}

// search walks every page of the query with search_after on id, so the result is the
// whole match set in id order.
func (p *ElasticsearchProvider) search(ctx context.Context, body map[string]interface{}) ([]models.University, error) {
	var (
		out   []models.University
		after []interface{}
	)
	for {
		page := make(map[string]interface{}, len(body)+3)
		for k, v := range body {
			page[k] = v
		}
		page["size"] = p.size
		page["track_total_hits"] = true
		page["sort"] = []interface{}{map[string]interface{}{"id": "asc"}}
		if after != nil {
			page["search_after"] = after
		}

		r, err := p.searchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, hit := range r.Hits.Hits {
			out = append(out, hit.Source)
		}

		n := len(r.Hits.Hits)
		if n == 0 || n < p.size || len(out) >= r.Hits.Total.Value {
			break
		}
		after = r.Hits.Hits[n-1].Sort
		if len(after) == 0 {
			return nil, fmt.Errorf("elasticsearch search: page without sort values after %d hits", len(out))
		}
	}
	if out == nil {
		out = []models.University{}
	}
	return out, nil
}

func (p *ElasticsearchProvider) searchPage(ctx context.Context, body map[string]interface{}) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode elasticsearch query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{p.index},
		Body:  bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("search", res)
	}

	var r searchResponse
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode elasticsearch response: %w", err)
	}
	return &r, nil
}

// Index bulk-writes universities, replacing documents with the same id.
func (p *ElasticsearchProvider) Index(ctx context.Context, universities []models.University) error {
	if len(universities) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, u := range universities {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": p.index, "_id": strconv.FormatInt(u.ID, 10)},
		}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(u); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{
		Index:   p.index,
		Body:    &buf,
		Refresh: "true",
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("bulk", res)
	}

	var r struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if r.Errors {
		return fmt.Errorf("elasticsearch bulk: one or more documents were rejected")
	}
	return nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("elasticsearch %s: %s: %s", op, res.Status(), strings.TrimSpace(string(body)))
}
