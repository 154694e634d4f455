package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyang/promptkit/internal/domain/event"
	"github.com/alanyang/promptkit/internal/domain/parser"
	domainprompt "github.com/alanyang/promptkit/internal/domain/prompt"
	"github.com/alanyang/promptkit/internal/domain/quality"
	"github.com/alanyang/promptkit/internal/domain/similarity"
	portcache "github.com/alanyang/promptkit/internal/port/cache"
	portbus "github.com/alanyang/promptkit/internal/port/eventbus"
	portlocker "github.com/alanyang/promptkit/internal/port/locker"
	portprompt "github.com/alanyang/promptkit/internal/port/prompt"
	portsource "github.com/alanyang/promptkit/internal/port/source"
)

var (
	ErrDuplicate         = errors.New("duplicate prompt")
	ErrInvalidPrompt     = errors.New("invalid prompt")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrSourceDisabled    = errors.New("document source not configured")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	importLockNamespace = "prompt-import"
)

type Config struct {
	Threshold        float64
	ScanLimit        int
	ScanWorkers      int
	RejectDuplicates bool
	SourceCacheTTL   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Threshold:        similarity.DefaultThreshold,
		ScanLimit:        500,
		ScanWorkers:      4,
		RejectDuplicates: true,
		SourceCacheTTL:   5 * time.Minute,
	}
}

// Service runs the catalogue workflow on top of the toolkit packages.
// The document source is optional; without it ImportFromSource fails with
// ErrSourceDisabled.
type Service struct {
	repo   portprompt.Repository
	bus    portbus.EventBus
	locker portlocker.AdvisoryLocker
	cache  portcache.Cache
	source portsource.DocumentSource
	cfg    Config
}

func NewService(
	repo portprompt.Repository,
	bus portbus.EventBus,
	locker portlocker.AdvisoryLocker,
	cache portcache.Cache,
	source portsource.DocumentSource,
	cfg Config,
) *Service {
	def := DefaultConfig()
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = def.Threshold
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = def.ScanLimit
	}
	if cfg.ScanWorkers <= 0 {
		cfg.ScanWorkers = def.ScanWorkers
	}
	if cfg.SourceCacheTTL <= 0 {
		cfg.SourceCacheTTL = def.SourceCacheTTL
	}
	return &Service{
		repo:   repo,
		bus:    bus,
		locker: locker,
		cache:  cache,
		source: source,
		cfg:    cfg,
	}
}

// Threshold returns t when it is a usable similarity threshold and the
// configured default otherwise.
func (s *Service) Threshold(t float64) float64 {
	if t <= 0 || t > 1 {
		return s.cfg.Threshold
	}
	return t
}

type Analysis struct {
	Format      parser.Format             `json:"format"`
	Prompt      domainprompt.ParsedPrompt `json:"prompt"`
	Content     string                    `json:"content"`
	Quality     quality.Result            `json:"quality"`
	Suggestions []string                  `json:"suggestions"`
	Fingerprint string                    `json:"fingerprint"`
}

// Analyze parses text and scores its content. It performs no I/O.
func (s *Service) Analyze(text string, format parser.Format) (Analysis, error) {
	doc, f, err := parser.Decode(text, format)
	if err != nil {
		return Analysis{}, fmt.Errorf("parse prompt: %w", err)
	}
	content := doc.Content()
	return Analysis{
		Format:      f,
		Prompt:      doc,
		Content:     content,
		Quality:     quality.Check(content),
		Suggestions: quality.Suggestions(content),
		Fingerprint: similarity.Fingerprint(content),
	}, nil
}

type ImportInput struct {
	CategoryID *uuid.UUID
	Text       string
	Format     parser.Format
	Force      bool
}

type Match struct {
	Prompt domainprompt.Prompt `json:"prompt"`
	Score  float64             `json:"score"`
}

type ImportResult struct {
	Prompt     domainprompt.Prompt `json:"prompt"`
	Format     parser.Format       `json:"format"`
	Quality    quality.Result      `json:"quality"`
	Duplicates []Match             `json:"duplicates,omitempty"`
}

// Import parses, validates and stores a prompt. Prompts similar to one
// already in the category are rejected with ErrDuplicate unless in.Force is
// set or duplicate rejection is disabled; the result carries the matches
// either way. The duplicate check and insert run under a per-category lock.
func (s *Service) Import(ctx context.Context, in ImportInput) (ImportResult, error) {
	a, err := s.Analyze(in.Text, in.Format)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Format: a.Format, Quality: a.Quality}
	if err := quality.Validate(a.Content); err != nil {
		return result, fmt.Errorf("%w: %w", ErrInvalidPrompt, err)
	}

	key := portlocker.Key(importLockNamespace, scopeName(in.CategoryID))
	err = s.locker.WithLock(ctx, key, func(ctx context.Context) error {
		matches, err := s.scan(ctx, in.CategoryID, a.Content, a.Fingerprint, s.cfg.Threshold)
		if err != nil {
			return err
		}
		result.Duplicates = matches
		if len(matches) > 0 && s.cfg.RejectDuplicates && !in.Force {
			return ErrDuplicate
		}

		p := domainprompt.New(in.CategoryID, string(a.Format), a.Prompt, a.Fingerprint, a.Quality.Score)
		created, err := s.repo.Create(ctx, p)
		if err != nil {
			return fmt.Errorf("create prompt: %w", err)
		}
		result.Prompt = created
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("import prompt: %w", err)
	}

	s.publish(ctx, event.New(event.TypePromptImported, result.Prompt.ID).WithCategory(in.CategoryID))
	if len(result.Duplicates) > 0 {
		ids := make([]uuid.UUID, len(result.Duplicates))
		for i, m := range result.Duplicates {
			ids[i] = m.Prompt.ID
		}
		s.publish(ctx, event.New(event.TypeDuplicatesFound, result.Prompt.ID).
			WithCategory(in.CategoryID).
			WithRelated(ids...))
	}
	return result, nil
}

// ImportFromSource fetches a document through the configured source and
// imports it. Fetched documents are cached by reference.
func (s *Service) ImportFromSource(ctx context.Context, ref portsource.Ref, categoryID *uuid.UUID, force bool) (ImportResult, error) {
	if s.source == nil {
		return ImportResult{}, ErrSourceDisabled
	}
	text, err := s.fetch(ctx, ref)
	if err != nil {
		return ImportResult{}, err
	}
	return s.Import(ctx, ImportInput{
		CategoryID: categoryID,
		Text:       text,
		Format:     parser.FormatFromPath(ref.Path),
		Force:      force,
	})
}

func (s *Service) fetch(ctx context.Context, ref portsource.Ref) (string, error) {
	key := "source:" + ref.String()
	if cached, err := s.cache.Get(ctx, key); err == nil {
		return string(cached), nil
	}

	doc, err := s.source.Fetch(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", ref, err)
	}
	if err := s.cache.Set(ctx, key, []byte(doc.Content), s.cfg.SourceCacheTTL); err != nil {
		slog.WarnContext(ctx, "failed to cache source document", "ref", ref.String(), "error", err)
	}
	return doc.Content, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domainprompt.Prompt, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("get prompt: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Prompt, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultListLimit
	}
	filters.Limit = min(filters.Limit, maxListLimit)
	filters.Offset = max(filters.Offset, 0)

	prompts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return prompts, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get prompt: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	s.publish(ctx, event.New(event.TypePromptDeleted, id).WithCategory(p.CategoryID))
	return nil
}

// Render returns the stored document with values substituted.
func (s *Service) Render(ctx context.Context, id uuid.UUID, values map[string]string) (domainprompt.ParsedPrompt, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return domainprompt.ParsedPrompt{}, err
	}
	return p.Document.Interpolate(values), nil
}

// Export encodes the stored document as json or yaml.
func (s *Service) Export(ctx context.Context, id uuid.UUID, target parser.Format) ([]byte, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Encode(p.Document, target)
}

// Encode renders doc in target, which must be json or yaml.
func Encode(doc domainprompt.ParsedPrompt, target parser.Format) ([]byte, error) {
	switch target {
	case parser.FormatJSON:
		return parser.ToJSON(doc, true)
	case parser.FormatYAML:
		return []byte(parser.ToYAML(doc)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, target)
	}
}

// FindSimilar ranks stored prompts against the content of text. A nil
// categoryID searches the whole catalogue.
func (s *Service) FindSimilar(ctx context.Context, text string, categoryID *uuid.UUID, threshold float64, limit int) ([]Match, error) {
	doc, err := parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt: %w", err)
	}

	corpus, err := s.repo.List(ctx, domainprompt.ListFilters{CategoryID: categoryID, Limit: s.cfg.ScanLimit})
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}

	ranked := similarity.Rank(doc.Content(), corpus, promptContent, s.Threshold(threshold))
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Match, len(ranked))
	for i, m := range ranked {
		out[i] = Match{Prompt: m.Item, Score: m.Score}
	}
	return out, nil
}

// DuplicateGroups clusters the category's prompts around their oldest
// member. Groups follow similarity to that member only.
func (s *Service) DuplicateGroups(ctx context.Context, categoryID *uuid.UUID, threshold float64) ([][]domainprompt.Prompt, error) {
	corpus, err := s.repo.ListByCategory(ctx, categoryID, s.cfg.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("list category prompts: %w", err)
	}
	return similarity.FindDuplicates(corpus, promptContent, s.Threshold(threshold)), nil
}

// scan finds stored prompts in the category similar to content. Exact
// fingerprint hits are checked first; the rest of the category is then
// compared in parallel. Matches are ordered by score, ties in storage order.
func (s *Service) scan(ctx context.Context, categoryID *uuid.UUID, content, fingerprint string, threshold float64) ([]Match, error) {
	exact, err := s.repo.ListByFingerprint(ctx, categoryID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("list by fingerprint: %w", err)
	}
	corpus, err := s.repo.ListByCategory(ctx, categoryID, s.cfg.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("list category prompts: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(exact))
	candidates := make([]domainprompt.Prompt, 0, len(exact)+len(corpus))
	for _, p := range append(exact, corpus...) {
		if !seen[p.ID] {
			seen[p.ID] = true
			candidates = append(candidates, p)
		}
	}

	scores := make([]float64, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ScanWorkers)
	for i := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = similarity.Similarity(content, candidates[i].Content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("similarity scan: %w", err)
	}

	var matches []Match
	for i, p := range candidates {
		if scores[i] >= threshold {
			matches = append(matches, Match{Prompt: p, Score: scores[i]})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.bus.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to publish event", "type", e.Type, "entity_id", e.EntityID, "error", err)
	}
}

func promptContent(p domainprompt.Prompt) string { return p.Content }

func scopeName(categoryID *uuid.UUID) string {
	if categoryID == nil {
		return "uncategorised"
	}
	return categoryID.String()
}
