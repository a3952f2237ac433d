package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/staymatch/backend/internal/api/middleware"
	"github.com/staymatch/backend/internal/catalog"
	"github.com/staymatch/backend/internal/metrics"
	"github.com/staymatch/backend/internal/normalize"
	"github.com/staymatch/backend/internal/oracle"
	"github.com/staymatch/backend/internal/scoring"
	"github.com/staymatch/backend/internal/storage/models"
)

// SearchOptions answers the questions normalization may ask, since an HTTP
// caller cannot be prompted mid-request.
type SearchOptions struct {
	Answers           map[string]string `json:"answers,omitempty"`
	AcceptSuggestions bool              `json:"accept_suggestions"`
	ClampToCatalog    bool              `json:"clamp_to_catalog"`
	Priority          string            `json:"priority,omitempty"` // "location" or "environment"
	Choices           map[string]string `json:"choices,omitempty"`
}

// SearchRequest represents a search. Fields set in Request override those
// extracted from Text.
type SearchRequest struct {
	Text    string             `json:"text,omitempty"`
	Request *models.RawRequest `json:"request,omitempty"`
	Options SearchOptions      `json:"options"`
}

// SearchResponse is a normalized request and its ranked matches.
type SearchResponse struct {
	Request models.SearchRequest `json:"request"`
	Issues  []normalize.Issue    `json:"issues"`
	Matches []scoring.Match      `json:"matches"`
	NoMatch bool                 `json:"no_match"`
}

// Searcher bundles what a search needs.
type Searcher struct {
	Catalog    *catalog.Store
	Extractor  oracle.Extractor
	Normalizer *normalize.Normalizer
	Engine     *scoring.Engine
	Metrics    *metrics.Metrics
}

// Search normalizes a request and ranks the catalog against it.
func Search(s Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Text) == "" && req.Request == nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Either text or request is required")
			return
		}

		prompter, err := policyFrom(req.Options)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
			return
		}

		var raw models.RawRequest
		if strings.TrimSpace(req.Text) != "" {
			raw, err = s.Extractor.ExtractRequest(ctx, req.Text)
			if err != nil {
				s.Metrics.Search(metrics.OutcomeUnavailable)
				middleware.WriteError(w, http.StatusServiceUnavailable, middleware.ErrUnavailable, "Could not interpret the request text: "+err.Error())
				return
			}
		}
		if req.Request != nil {
			raw = mergeRaw(raw, *req.Request)
		}

		result, err := s.Normalizer.Normalize(ctx, raw, prompter)
		if err != nil {
			var reqErr *normalize.RequestError
			if errors.As(err, &reqErr) {
				s.Metrics.Search(metrics.OutcomeRejected)
				middleware.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, middleware.ErrValidation, reqErr.Message, reqErr)
				return
			}
			s.Metrics.Search(metrics.OutcomeError)
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to normalize request")
			return
		}

		ranked := s.Engine.Rank(&result.Request, s.Catalog.All())
		if ranked.NoMatch {
			s.Metrics.Search(metrics.OutcomeNoMatch)
		} else {
			s.Metrics.Search(metrics.OutcomeMatched)
		}

		writeJSON(w, http.StatusOK, SearchResponse{
			Request: result.Request,
			Issues:  result.Issues,
			Matches: ranked.Matches,
			NoMatch: ranked.NoMatch,
		})
	}
}

func policyFrom(o SearchOptions) (*normalize.PolicyPrompter, error) {
	p := &normalize.PolicyPrompter{
		Answers:           o.Answers,
		AcceptSuggestions: o.AcceptSuggestions,
		ClampToCatalog:    o.ClampToCatalog,
		Choices:           o.Choices,
	}
	switch strings.ToLower(o.Priority) {
	case "":
		p.Priority = normalize.PriorityNone
	case "location":
		p.Priority = normalize.KeepLocation
	case "environment":
		p.Priority = normalize.KeepEnvironment
	default:
		return nil, errors.New(`priority must be "location" or "environment"`)
	}
	return p, nil
}

// mergeRaw overlays the set fields of over onto base.
func mergeRaw(base, over models.RawRequest) models.RawRequest {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&base.Location, over.Location)
	setString(&base.Environment, over.Environment)
	setString(&base.Type, over.Type)
	setString(&base.Budget, over.Budget)
	setString(&base.StartDate, over.StartDate)
	setString(&base.EndDate, over.EndDate)

	if over.GroupSize != 0 {
		base.GroupSize = over.GroupSize
	}
	if over.Features != nil {
		base.Features = over.Features
	}
	if over.Tags != nil {
		base.Tags = over.Tags
	}

	for _, f := range []struct{ dst, src **float64 }{
		{&base.PriceMin, &over.PriceMin},
		{&base.PriceMax, &over.PriceMax},
		{&base.BudgetWeight, &over.BudgetWeight},
		{&base.EnvironmentWeight, &over.EnvironmentWeight},
		{&base.FeatureWeight, &over.FeatureWeight},
		{&base.TagsWeight, &over.TagsWeight},
	} {
		if *f.src != nil {
			*f.dst = *f.src
		}
	}
	return base
}
