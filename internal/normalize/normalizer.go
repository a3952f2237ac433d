// Package normalize turns loosely structured search requests into canonical
// queries against the catalog vocabulary.
package normalize

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/staymatch/backend/internal/calendar"
	"github.com/staymatch/backend/internal/catalog"
	"github.com/staymatch/backend/internal/oracle"
	"github.com/staymatch/backend/internal/storage/models"
)

// Catalog is the part of the catalog store the normalizer reads.
type Catalog interface {
	Vocabulary() *catalog.Vocabulary
	MaxCapacity() int
	PriceRange() (min, max float64)
}

// Options tune the matching thresholds.
type Options struct {
	// AcceptThreshold is the similarity above which a substitution is
	// accepted without confirmation.
	AcceptThreshold float64
	// LocationCutoff is the minimum similarity for a fuzzy location match.
	LocationCutoff float64
	// FuzzyCutoff is the minimum similarity for any other fuzzy match to be
	// offered at all.
	FuzzyCutoff float64
	// ReferenceYear completes month/day expressions without a year.
	ReferenceYear int

	Similarity func(a, b string) float64
	Now        func() time.Time
}

// DefaultOptions returns the reference thresholds.
func DefaultOptions() Options {
	return Options{
		AcceptThreshold: 0.65,
		LocationCutoff:  0.7,
		FuzzyCutoff:     0.5,
		ReferenceYear:   calendar.DefaultReferenceYear,
		Similarity:      Similarity,
		Now:             time.Now,
	}
}

// Normalizer resolves raw requests. It holds no per-request state.
type Normalizer struct {
	catalog Catalog
	oracle  oracle.Oracle
	opts    Options
}

// New creates a normalizer. Zero options take their defaults and a nil
// oracle never suggests anything.
func New(cat Catalog, o oracle.Oracle, opts Options) *Normalizer {
	def := DefaultOptions()
	if opts.AcceptThreshold <= 0 {
		opts.AcceptThreshold = def.AcceptThreshold
	}
	if opts.LocationCutoff <= 0 {
		opts.LocationCutoff = def.LocationCutoff
	}
	if opts.FuzzyCutoff <= 0 {
		opts.FuzzyCutoff = def.FuzzyCutoff
	}
	if opts.ReferenceYear == 0 {
		opts.ReferenceYear = def.ReferenceYear
	}
	if opts.Similarity == nil {
		opts.Similarity = def.Similarity
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if o == nil {
		o = oracle.Nop{}
	}
	return &Normalizer{catalog: cat, oracle: o, opts: opts}
}

// Result is a canonical request plus everything worth telling the user
// about how it was derived.
type Result struct {
	Request models.SearchRequest `json:"request"`
	Issues  []Issue              `json:"issues"`
}

// HasIssue reports whether an issue of the given kind was recorded.
func (r *Result) HasIssue(kind IssueKind) bool {
	return slices.ContainsFunc(r.Issues, func(i Issue) bool { return i.Kind == kind })
}

// Normalize resolves raw into a canonical request. A request that cannot be
// satisfied yields a *RequestError; any other error comes from the prompter.
func (n *Normalizer) Normalize(ctx context.Context, raw models.RawRequest, p Prompter) (*Result, error) {
	r := &run{
		Normalizer: n,
		ctx:        ctx,
		prompter:   p,
		vocab:      n.catalog.Vocabulary(),
		issues:     []Issue{},
	}
	return r.normalize(raw)
}

// run carries the state of one normalization.
type run struct {
	*Normalizer
	ctx         context.Context
	prompter    Prompter
	vocab       *catalog.Vocabulary
	issues      []Issue
	budgetGiven bool
}

func (r *run) normalize(raw models.RawRequest) (*Result, error) {
	if err := r.fillRequired(&raw); err != nil {
		return nil, err
	}

	req := models.SearchRequest{GroupSize: raw.GroupSize}

	env, err := r.resolveTerm(catalog.FieldEnvironment, raw.Environment, r.opts.FuzzyCutoff)
	if err != nil {
		return nil, err
	}
	if req.Type, err = r.resolveTerm(catalog.FieldType, raw.Type, r.opts.FuzzyCutoff); err != nil {
		return nil, err
	}
	if req.Features, err = r.resolveList(catalog.FieldFeatures, raw.Features); err != nil {
		return nil, err
	}
	if req.Tags, err = r.resolveList(catalog.FieldTags, raw.Tags); err != nil {
		return nil, err
	}
	if err := r.resolvePlace(&req, raw.Location, raw.Environment, env); err != nil {
		return nil, err
	}

	r.resolveBudget(&req, raw)
	r.resolveDates(&req, raw.StartDate, raw.EndDate)
	req.Weights = weightsFrom(raw)

	if err := r.validate(&req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("normalized request: %w", err)
	}
	return &Result{Request: req, Issues: r.issues}, nil
}

func (r *run) issue(kind IssueKind, field, value, format string, args ...any) {
	r.issues = append(r.issues, Issue{Kind: kind, Field: field, Value: value, Detail: fmt.Sprintf(format, args...)})
}

// fillRequired asks for a place and a group size when they are missing.
func (r *run) fillRequired(raw *models.RawRequest) error {
	raw.Location = strings.TrimSpace(raw.Location)
	raw.Environment = strings.TrimSpace(raw.Environment)

	if raw.Location == "" && raw.Environment == "" {
		answer, err := r.prompter.Ask(r.ctx, "location")
		if err != nil {
			return err
		}
		raw.Location = strings.TrimSpace(answer)
		if raw.Location == "" {
			if answer, err = r.prompter.Ask(r.ctx, "environment"); err != nil {
				return err
			}
			raw.Environment = strings.TrimSpace(answer)
		}
		if raw.Location == "" && raw.Environment == "" {
			return incomplete("location", "a location or an environment is required")
		}
	}

	if raw.GroupSize < 1 {
		answer, err := r.prompter.Ask(r.ctx, "group_size")
		if err != nil {
			return err
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(answer))
		if convErr != nil || n < 1 {
			return incomplete("group_size", "group size must be a positive number, got %q", answer)
		}
		raw.GroupSize = n
	}
	return nil
}

// resolveTerm maps term onto the field's vocabulary: exact match, then the
// better of the oracle's suggestion and the closest local match. Returns ""
// when nothing is accepted.
func (r *run) resolveTerm(field catalog.Field, term string, cutoff float64) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", nil
	}
	if canonical, ok := r.vocab.Lookup(field, term); ok {
		return canonical, nil
	}

	terms, err := r.vocab.Terms(field)
	if err != nil {
		return "", err
	}
	if len(terms) == 0 {
		r.issue(IssueUnresolvedTerm, string(field), term, "vocabulary is empty")
		return "", nil
	}

	candidate, score := "", -1.0
	suggestion, err := r.oracle.ResolveTerm(r.ctx, term, string(field), terms)
	if err != nil {
		log.Printf("Oracle unavailable resolving %s %q: %v", field, term, err)
		r.issue(IssueOracleUnavailable, string(field), term, "%v", err)
	} else if canonical, ok := r.vocab.Lookup(field, suggestion); ok {
		candidate, score = canonical, r.opts.Similarity(term, canonical)
	}

	if local, s, ok := closestBy(r.opts.Similarity, term, terms, cutoff); ok && s > score {
		candidate, score = local, s
	}
	if candidate == "" {
		r.issue(IssueUnresolvedTerm, string(field), term, "no vocabulary entry matched")
		return "", nil
	}

	if score > r.opts.AcceptThreshold {
		r.issue(IssueSubstituted, string(field), term, "replaced by %q (similarity %.2f)", candidate, score)
		return candidate, nil
	}

	ok, err := r.prompter.Confirm(r.ctx, Confirmation{
		Kind:  ConfirmSubstitution,
		Field: string(field),
		From:  term,
		To:    candidate,
		Score: score,
	})
	if err != nil {
		return "", err
	}
	if !ok {
		r.issue(IssueUnresolvedTerm, string(field), term, "substitution by %q declined", candidate)
		return "", nil
	}
	r.issue(IssueSubstituted, string(field), term, "replaced by %q on confirmation", candidate)
	return candidate, nil
}

// resolveList resolves each term, dropping the unresolved and duplicates.
func (r *run) resolveList(field catalog.Field, terms []string) ([]string, error) {
	out := []string{}
	for _, t := range terms {
		canonical, err := r.resolveTerm(field, t, r.opts.FuzzyCutoff)
		if err != nil {
			return nil, err
		}
		if canonical != "" && !slices.Contains(out, canonical) {
			out = append(out, canonical)
		}
	}
	return out, nil
}

// resolvePlace settles locations and environment together.
func (r *run) resolvePlace(req *models.SearchRequest, rawLoc, rawEnv, env string) error {
	loc := ""
	if rawLoc != "" {
		var err error
		if loc, err = r.resolveTerm(catalog.FieldLocation, rawLoc, r.opts.LocationCutoff); err != nil {
			return err
		}
	}

	switch {
	case loc != "" && env == "":
		req.Locations = []string{loc}
		return nil

	case loc == "" && env != "":
		locations, err := r.locationsWith(env)
		if err != nil {
			return err
		}
		req.Locations = locations
		req.Environment = env
		return nil

	case loc != "" && env != "":
		return r.reconcile(req, loc, env)

	default:
		if rawEnv != "" && rawLoc == "" {
			return contradictory("environment", "no properties offer environment %q", rawEnv)
		}
		req.Locations = []string{}
		return nil
	}
}

// locationsWith lists the locations offering env, narrowed by the user's
// choice when there are several.
func (r *run) locationsWith(env string) ([]string, error) {
	candidates := r.vocab.LocationsWithEnvironment(env)
	switch len(candidates) {
	case 0:
		return nil, contradictory("environment", "no properties offer environment %q", env)
	case 1:
		return candidates, nil
	}

	choice, err := r.prompter.Choose(r.ctx, "location", candidates)
	if err != nil {
		return nil, err
	}
	if slices.Contains(candidates, choice) {
		return []string{choice}, nil
	}
	return candidates, nil
}

// reconcile handles a location that may not offer the requested environment.
func (r *run) reconcile(req *models.SearchRequest, loc, env string) error {
	offered := r.vocab.EnvironmentsAt(loc)
	if slices.ContainsFunc(offered, func(e string) bool { return strings.EqualFold(e, env) }) {
		req.Locations = []string{loc}
		req.Environment = env
		return nil
	}

	priority, err := r.prompter.Prefer(r.ctx, loc, env)
	if err != nil {
		return err
	}

	switch priority {
	case KeepLocation:
		switched, err := r.pickEnvironment(loc, offered)
		if err != nil {
			return err
		}
		req.Locations = []string{loc}
		req.Environment = switched
		r.issue(IssueEnvSwitched, "environment", env, "%s offers %q", loc, switched)
		return nil

	case KeepEnvironment:
		if len(r.vocab.LocationsWithEnvironment(env)) > 0 {
			locations, err := r.locationsWith(env)
			if err != nil {
				return err
			}
			req.Locations = locations
			req.Environment = env
			r.issue(IssueLocationSwitched, "location", loc, "%q is offered at %s", env, strings.Join(locations, ", "))
			return nil
		}
		if len(offered) == 0 {
			return contradictory("environment", "%s does not offer %q and nowhere else does", loc, env)
		}
		req.Locations = []string{loc}
		req.Environment = offered[0]
		r.issue(IssueEnvFallback, "environment", env, "no other location offers it; using %q", offered[0])
		return nil

	default:
		return contradictory("environment", "%s does not offer environment %q", loc, env)
	}
}

func (r *run) pickEnvironment(loc string, offered []string) (string, error) {
	switch len(offered) {
	case 0:
		return "", nil
	case 1:
		return offered[0], nil
	}
	choice, err := r.prompter.Choose(r.ctx, "environment", offered)
	if err != nil {
		return "", err
	}
	if slices.Contains(offered, choice) {
		return choice, nil
	}
	return offered[0], nil
}

var (
	budgetRange   = regexp.MustCompile(`^\$?\s*(\d+(?:\.\d+)?)\s*(?:-|–|to)\s*\$?\s*(\d+(?:\.\d+)?)$`)
	budgetCeiling = regexp.MustCompile(`^\$?\s*(\d+(?:\.\d+)?)$`)
)

// ParseBudget reads a ceiling ("200") or a range ("100-250"). A ceiling
// gives a floor of zero and a reversed range is swapped.
func ParseBudget(s string) (min, max float64, ok bool) {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))

	if m := budgetRange.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi, true
	}
	if m := budgetCeiling.FindStringSubmatch(s); m != nil {
		hi, _ := strconv.ParseFloat(m[1], 64)
		return 0, hi, true
	}
	return 0, 0, false
}

// resolveBudget sets the price band. Without any budget the band spans the
// whole catalog; an unparsable budget gives a band of zero.
func (r *run) resolveBudget(req *models.SearchRequest, raw models.RawRequest) {
	_, hi := r.catalog.PriceRange()
	min, max := 0.0, hi

	if b := strings.TrimSpace(raw.Budget); b != "" {
		r.budgetGiven = true
		var ok bool
		if min, max, ok = ParseBudget(b); !ok {
			r.issue(IssueUnparsableBudget, "budget", b, "using a price band of zero")
		}
	}
	if raw.PriceMin != nil {
		r.budgetGiven = true
		min = *raw.PriceMin
	}
	if raw.PriceMax != nil {
		r.budgetGiven = true
		max = *raw.PriceMax
	}

	req.SetPriceBand(nonNegative(min), nonNegative(max))
}

// resolveDates fixes both endpoints or falls back to the default window.
func (r *run) resolveDates(req *models.SearchRequest, rawStart, rawEnd string) {
	start, okStart := r.resolveDate("start_date", rawStart)
	end, okEnd := r.resolveDate("end_date", rawEnd)
	if okStart && okEnd && !end.Before(start) {
		req.StartDate, req.EndDate = start, end
		return
	}

	w := calendar.DefaultWindow(r.opts.Now())
	req.StartDate, req.EndDate = w.Start, w.End
	r.issue(IssueMalformedDateRange, "dates", strings.TrimSpace(rawStart)+".."+strings.TrimSpace(rawEnd), "using %s", w)
}

func (r *run) resolveDate(field, text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	if t, err := calendar.ParseExpression(text, r.opts.ReferenceYear); err == nil {
		return t, true
	}

	answer, err := r.oracle.ResolveDate(r.ctx, text, r.opts.ReferenceYear)
	if err != nil {
		log.Printf("Oracle unavailable resolving %s %q: %v", field, text, err)
		r.issue(IssueOracleUnavailable, field, text, "%v", err)
		return time.Time{}, false
	}
	if answer == "" {
		return time.Time{}, false
	}
	t, err := calendar.ParseISO(answer)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// validate re-checks group size and budget against the catalog's bounds.
func (r *run) validate(req *models.SearchRequest) error {
	maxCapacity := r.catalog.MaxCapacity()
	if maxCapacity > 0 && req.GroupSize > maxCapacity {
		ok, err := r.prompter.Confirm(r.ctx, Confirmation{
			Kind:  ConfirmClamp,
			Field: "group_size",
			From:  strconv.Itoa(req.GroupSize),
			To:    strconv.Itoa(maxCapacity),
		})
		if err != nil {
			return err
		}
		if !ok {
			return contradictory("group_size", "no property sleeps %d guests; the largest sleeps %d", req.GroupSize, maxCapacity)
		}
		r.issue(IssueClamped, "group_size", strconv.Itoa(req.GroupSize), "reduced to %d", maxCapacity)
		req.GroupSize = maxCapacity
	}

	lo, hi := r.catalog.PriceRange()
	if !r.budgetGiven || maxCapacity == 0 || (req.PriceMax >= lo && req.PriceMax <= hi) {
		return nil
	}

	newMax := min(max(req.PriceMax, lo), hi)
	newMin := min(req.PriceMin, newMax)
	ok, err := r.prompter.Confirm(r.ctx, Confirmation{
		Kind:  ConfirmClamp,
		Field: "budget",
		From:  strconv.FormatFloat(req.PriceMax, 'f', 2, 64),
		To:    strconv.FormatFloat(newMax, 'f', 2, 64),
	})
	if err != nil {
		return err
	}
	if ok {
		r.issue(IssueClamped, "budget", strconv.FormatFloat(req.PriceMax, 'f', 2, 64), "moved into catalog range %.2f-%.2f", lo, hi)
		req.SetPriceBand(newMin, newMax)
	}
	return nil
}

// weightsFrom defaults missing weights to 1 and clamps negatives to 0.
func weightsFrom(raw models.RawRequest) models.Weights {
	w := models.EqualWeights()
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = nonNegative(*v)
		}
	}
	set(&w.Budget, raw.BudgetWeight)
	set(&w.Environment, raw.EnvironmentWeight)
	set(&w.Features, raw.FeatureWeight)
	set(&w.Tags, raw.TagsWeight)
	return w
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
