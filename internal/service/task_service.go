package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/digkill/QuickAI/internal/apperr"
	"github.com/digkill/QuickAI/internal/entitlement"
	"github.com/digkill/QuickAI/internal/extract"
	"github.com/digkill/QuickAI/internal/models"
	"github.com/digkill/QuickAI/internal/storage"
	"github.com/digkill/QuickAI/internal/upload"
)

const (
	DefaultArticleLength = 800
	MinArticleLength     = 100
	MaxArticleLength     = 4000
	blogTitleMaxTokens   = 100
	resumeMaxTokens      = 1000
	jobDiscoveryTokens   = 500
	jobSearchTokens      = 600
	learningTokens       = 1200
)

// TaskService runs one generation per call: validate, authorize, invoke providers,
// extract, record, count usage, then answer. Temp uploads are released on every path.
type TaskService struct {
	log       *slog.Logger
	gate      *entitlement.Gate
	text      TextCompleter
	images    ImageSynthesizer
	store     ImageStore
	recorder  *CreationRecorder
	readDoc   DocumentReader
	maxUpload int64
}

type TaskDeps struct {
	Gate      *entitlement.Gate
	Text      TextCompleter
	Images    ImageSynthesizer
	Store     ImageStore
	Recorder  *CreationRecorder
	ReadDoc   DocumentReader
	MaxUpload int64
}

func NewTaskService(log *slog.Logger, deps TaskDeps) *TaskService {
	maxUpload := deps.MaxUpload
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &TaskService{
		log:       log,
		gate:      deps.Gate,
		text:      deps.Text,
		images:    deps.Images,
		store:     deps.Store,
		recorder:  deps.Recorder,
		readDoc:   deps.ReadDoc,
		maxUpload: maxUpload,
	}
}

type ArticleRequest struct {
	Prompt string
	Length int
}

type ImageRequest struct {
	Prompt  string
	Publish bool
}

// FileRequest references an upload already spooled to local disk.
// The service takes ownership and removes the file before returning.
type FileRequest struct {
	Path        string
	ContentType string
}

type ObjectRemovalRequest struct {
	FileRequest
	Object string
}

type ResumeReview struct {
	Content  string `json:"content"`
	ATSScore *int   `json:"atsScore"`
}

type JobSearchRequest struct {
	JobTitle string
	Location string
}

type LearningRequest struct {
	Topic string
	Level string
}

func (s *TaskService) GenerateArticle(ctx context.Context, caller models.Caller, req ArticleRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", apperr.Validation("Prompt is required")
	}
	if err := s.gate.Authorize(caller, models.KindArticle); err != nil {
		return "", err
	}

	content, err := s.text.CompleteText(ctx, prompt, 0.7, ArticleLength(req.Length))
	if err != nil {
		return "", s.failed(caller, models.KindArticle, err)
	}

	s.finish(ctx, caller, models.KindArticle, prompt, content, false)
	return content, nil
}

func (s *TaskService) GenerateBlogTitle(ctx context.Context, caller models.Caller, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", apperr.Validation("Prompt is required")
	}
	if err := s.gate.Authorize(caller, models.KindBlogTitle); err != nil {
		return "", err
	}

	content, err := s.text.CompleteText(ctx, prompt, 0.7, blogTitleMaxTokens)
	if err != nil {
		return "", s.failed(caller, models.KindBlogTitle, err)
	}

	s.finish(ctx, caller, models.KindBlogTitle, prompt, content, false)
	return content, nil
}

func (s *TaskService) GenerateImage(ctx context.Context, caller models.Caller, req ImageRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", apperr.Validation("Prompt is required")
	}
	if err := s.gate.Authorize(caller, models.KindImage); err != nil {
		return "", err
	}

	img, err := s.images.SynthesizeImage(ctx, prompt)
	if err != nil {
		return "", s.failed(caller, models.KindImage, err)
	}
	url, err := s.store.StoreImage(ctx, storage.Source{Data: img.Bytes, ContentType: img.Mime}, storage.Transform{})
	if err != nil {
		return "", s.failed(caller, models.KindImage, err)
	}

	s.finish(ctx, caller, models.KindImage, prompt, url, req.Publish)
	return url, nil
}

func (s *TaskService) RemoveBackground(ctx context.Context, caller models.Caller, req FileRequest) (string, error) {
	guard := upload.Acquire(req.Path, s.log)
	defer guard.Release()

	if !guard.Present() {
		return "", apperr.Validation("Image file is required")
	}
	if err := s.gate.Authorize(caller, models.KindRemoveBackground); err != nil {
		return "", err
	}
	if err := s.checkSize(guard, "Image"); err != nil {
		return "", err
	}

	src := storage.Source{Path: guard.Path(), ContentType: req.ContentType}
	url, err := s.store.StoreImage(ctx, src, storage.BackgroundRemoval())
	if err != nil {
		return "", s.failed(caller, models.KindRemoveBackground, err)
	}

	s.finish(ctx, caller, models.KindRemoveBackground, "Remove background from image", url, false)
	return url, nil
}

func (s *TaskService) RemoveObject(ctx context.Context, caller models.Caller, req ObjectRemovalRequest) (string, error) {
	guard := upload.Acquire(req.Path, s.log)
	defer guard.Release()

	if !guard.Present() {
		return "", apperr.Validation("Image file is required")
	}
	object, err := ObjectName(req.Object)
	if err != nil {
		return "", err
	}
	if err := s.gate.Authorize(caller, models.KindRemoveObject); err != nil {
		return "", err
	}
	if err := s.checkSize(guard, "Image"); err != nil {
		return "", err
	}

	src := storage.Source{Path: guard.Path(), ContentType: req.ContentType}
	url, err := s.store.StoreImage(ctx, src, storage.GenerativeRemove(object))
	if err != nil {
		return "", s.failed(caller, models.KindRemoveObject, err)
	}

	s.finish(ctx, caller, models.KindRemoveObject, fmt.Sprintf("Removed %s from image", object), url, false)
	return url, nil
}

func (s *TaskService) ReviewResume(ctx context.Context, caller models.Caller, req FileRequest) (*ResumeReview, error) {
	guard := upload.Acquire(req.Path, s.log)
	defer guard.Release()

	if !guard.Present() {
		return nil, apperr.Validation("Resume file is required")
	}
	if err := s.gate.Authorize(caller, models.KindResumeReview); err != nil {
		return nil, err
	}
	resume, err := s.readResume(guard)
	if err != nil {
		return nil, err
	}

	content, err := s.text.CompleteText(ctx, resumeReviewPrompt(resume), 0.7, resumeMaxTokens)
	if err != nil {
		return nil, s.failed(caller, models.KindResumeReview, err)
	}

	review := &ResumeReview{Content: content}
	if score, ok := extract.NumericScore(content); ok && score >= 0 && score <= 100 {
		review.ATSScore = &score
	}

	s.finish(ctx, caller, models.KindResumeReview, "Review the uploaded resume", content, false)
	return review, nil
}

func (s *TaskService) DiscoverJobs(ctx context.Context, caller models.Caller, req FileRequest) ([]string, error) {
	guard := upload.Acquire(req.Path, s.log)
	defer guard.Release()

	if !guard.Present() {
		return nil, apperr.Validation("Resume file is required")
	}
	if err := s.gate.Authorize(caller, models.KindJobDiscovery); err != nil {
		return nil, err
	}
	resume, err := s.readResume(guard)
	if err != nil {
		return nil, err
	}

	raw, err := s.text.CompleteText(ctx, jobDiscoveryPrompt(resume), 0.5, jobDiscoveryTokens)
	if err != nil {
		return nil, s.failed(caller, models.KindJobDiscovery, err)
	}
	jobs := extract.JSONArray(raw)

	s.finish(ctx, caller, models.KindJobDiscovery, "Discover jobs matching the uploaded resume", encodeContent(jobs), false)
	return jobs, nil
}

func (s *TaskService) SearchJobs(ctx context.Context, caller models.Caller, req JobSearchRequest) (*models.JobSearch, error) {
	title := strings.TrimSpace(req.JobTitle)
	location := strings.TrimSpace(req.Location)
	if title == "" {
		return nil, apperr.Validation("Job title is required")
	}
	if err := s.gate.Authorize(caller, models.KindJobSearch); err != nil {
		return nil, err
	}

	raw, err := s.text.CompleteText(ctx, jobSearchPrompt(title, location), 0.5, jobSearchTokens)
	if err != nil {
		return nil, s.failed(caller, models.KindJobSearch, err)
	}

	search := extract.JSONObject(raw, models.JobSearch{})
	if len(search.Keywords) == 0 {
		search.Keywords = strings.Fields(title)
	}
	if strings.TrimSpace(search.Summary) == "" {
		search.Summary = "Open positions for " + title + "."
	}
	search.URLs = JobBoardURLs(title, location)

	prompt := title
	if location != "" {
		prompt += " in " + location
	}
	s.finish(ctx, caller, models.KindJobSearch, prompt, encodeContent(search), false)
	return &search, nil
}

func (s *TaskService) FindLearningResources(ctx context.Context, caller models.Caller, req LearningRequest) ([]models.LearningResource, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, apperr.Validation("Topic is required")
	}
	level := strings.ToLower(strings.TrimSpace(req.Level))
	if level == "" {
		level = "beginner"
	}
	if err := s.gate.Authorize(caller, models.KindLearningResources); err != nil {
		return nil, err
	}

	raw, err := s.text.CompleteText(ctx, learningResourcesPrompt(topic, level), 0.7, learningTokens)
	if err != nil {
		return nil, s.failed(caller, models.KindLearningResources, err)
	}
	resources := LearningResources(raw, topic)

	s.finish(ctx, caller, models.KindLearningResources, topic+" ("+level+")", encodeContent(resources), false)
	return resources, nil
}

// ArticleLength clamps the requested token budget. Zero means the default.
func ArticleLength(n int) int {
	switch {
	case n <= 0:
		return DefaultArticleLength
	case n < MinArticleLength:
		return MinArticleLength
	case n > MaxArticleLength:
		return MaxArticleLength
	default:
		return n
	}
}

// ObjectName accepts exactly one token with no whitespace.
func ObjectName(raw string) (string, error) {
	object := strings.TrimSpace(raw)
	if object == "" {
		return "", apperr.Validation("Object name is required")
	}
	if strings.ContainsAny(object, " \t\r\n") {
		return "", apperr.Validation("Please enter only one object name")
	}
	return object, nil
}

// LearningResources parses the model's resource list, falling back to one search link
// per listed line, and finally to a single search for topic.
func LearningResources(raw, topic string) []models.LearningResource {
	var out []models.LearningResource
	if parsed, ok := extract.JSONList[models.LearningResource](raw); ok {
		for _, r := range parsed {
			r.Title = strings.TrimSpace(r.Title)
			if r.Title == "" {
				continue
			}
			if strings.TrimSpace(r.URL) == "" {
				r.URL = SearchURL(r.Title)
			}
			if r.Kind == "" {
				r.Kind = "article"
			}
			out = append(out, r)
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, line := range extract.Lines(raw, extract.MaxListLines) {
		out = append(out, models.LearningResource{Title: line, URL: SearchURL(line), Kind: "search"})
	}
	if len(out) > 0 {
		return out
	}
	return []models.LearningResource{{
		Title: topic,
		URL:   SearchURL(topic + " tutorial"),
		Kind:  "search",
	}}
}

func (s *TaskService) readResume(guard *upload.TempUpload) (string, error) {
	if err := s.checkSize(guard, "Resume"); err != nil {
		return "", err
	}
	text, err := s.readDoc(guard.Path())
	if err != nil {
		s.log.Warn("resume could not be parsed", "err", err)
		return "", apperr.Validation("Resume must be a readable PDF")
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.Validation("Resume contains no readable text")
	}
	return text, nil
}

// checkSize rejects uploads over the limit before anything reads or forwards them.
// The transport keeps at most limit+1 bytes, so an oversize file here is also truncated.
func (s *TaskService) checkSize(guard *upload.TempUpload, label string) error {
	over, err := guard.Exceeds(s.maxUpload)
	if err != nil {
		return apperr.Internal("inspect upload", err)
	}
	if over {
		return apperr.Validation(upload.TooLargeMessage(label, s.maxUpload))
	}
	return nil
}

// finish runs the best-effort tail of a successful generation.
func (s *TaskService) finish(ctx context.Context, caller models.Caller, kind models.TaskKind, prompt, content string, publish bool) {
	s.recorder.Record(ctx, caller.UserID, prompt, content, kind, publish)
	s.gate.RecordUsage(ctx, caller, kind)
}

func (s *TaskService) failed(caller models.Caller, kind models.TaskKind, err error) error {
	s.log.Error("generation failed", "err", err, "user", caller.UserID, "kind", kind)
	return err
}

func encodeContent(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
