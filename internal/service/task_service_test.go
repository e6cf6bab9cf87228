package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/QuickAI/internal/apperr"
	"github.com/digkill/QuickAI/internal/models"
	"github.com/digkill/QuickAI/internal/storage"
)

func TestGenerateArticleRecordsAndCountsUsage(t *testing.T) {
	h := newHarness(t)
	h.text.reply = "# Go in production\n\nBody."

	content, err := h.svc.GenerateArticle(context.Background(), freeCaller, ArticleRequest{Prompt: "Write about Go", Length: 1200})
	require.NoError(t, err)
	assert.Equal(t, "# Go in production\n\nBody.", content)
	assert.Equal(t, []int{1200}, h.text.tokens)

	saved := h.creations.all()
	require.Len(t, saved, 1)
	assert.Equal(t, models.KindArticle, saved[0].Type)
	assert.Equal(t, "Write about Go", saved[0].Prompt)
	assert.Equal(t, content, saved[0].Content)
	assert.False(t, saved[0].Publish)
	assert.Equal(t, freeCaller.UserID, saved[0].UserID)

	assert.Equal(t, []int{freeCaller.FreeUsage + 1}, h.usage.calls)
}

func TestMeteredKindsRejectExhaustedFreeCallers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for usage := 10; usage < 15; usage++ {
		caller := models.Caller{UserID: "u", Plan: models.PlanFree, FreeUsage: usage}

		_, err := h.svc.GenerateArticle(ctx, caller, ArticleRequest{Prompt: "p"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

		_, err = h.svc.GenerateBlogTitle(ctx, caller, "p")
		require.Error(t, err)
		assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
	}
	assert.Equal(t, 0, h.providerCalls())
	assert.Empty(t, h.usage.calls)
	assert.Empty(t, h.creations.all())
}

func TestPremiumCallersAreNeverQuotaLimited(t *testing.T) {
	h := newHarness(t)

	for _, usage := range []int{0, 10, 11, 1000} {
		caller := models.Caller{UserID: "p", Plan: models.PlanPremium, FreeUsage: usage}
		_, err := h.svc.GenerateBlogTitle(context.Background(), caller, "titles about Go")
		require.NoError(t, err)
	}
	assert.Equal(t, 4, h.text.calls)
	assert.Empty(t, h.usage.calls, "premium usage is not counted")
}

func TestArticleSurvivesBookkeepingFailures(t *testing.T) {
	h := newHarness(t)
	h.creations.insertErr = errors.New("db down")
	h.usage.err = errors.New("identity down")

	content, err := h.svc.GenerateArticle(context.Background(), freeCaller, ArticleRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "generated text", content)
}

func TestArticleValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.GenerateArticle(context.Background(), freeCaller, ArticleRequest{Prompt: "   "})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 0, h.providerCalls())
}

func TestUpstreamFailureSkipsRecording(t *testing.T) {
	h := newHarness(t)
	h.text.err = apperr.Upstream("language model returned no content", nil)

	_, err := h.svc.GenerateArticle(context.Background(), freeCaller, ArticleRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Empty(t, h.creations.all())
	assert.Empty(t, h.usage.calls)
}

func TestArticleLength(t *testing.T) {
	assert.Equal(t, DefaultArticleLength, ArticleLength(0))
	assert.Equal(t, MinArticleLength, ArticleLength(10))
	assert.Equal(t, 1600, ArticleLength(1600))
	assert.Equal(t, MaxArticleLength, ArticleLength(100000))
}

func TestPremiumOnlyKindsRejectFreeCallers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.GenerateImage(ctx, freeCaller, ImageRequest{Prompt: "a cat"})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	bg := tempFile(t, "bg.png", 16)
	_, err = h.svc.RemoveBackground(ctx, freeCaller, FileRequest{Path: bg})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
	assert.True(t, fileGone(t, bg))

	resume := tempFile(t, "resume.pdf", 16)
	_, err = h.svc.ReviewResume(ctx, freeCaller, FileRequest{Path: resume})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
	assert.True(t, fileGone(t, resume))

	_, err = h.svc.SearchJobs(ctx, freeCaller, JobSearchRequest{JobTitle: "Go Developer"})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	_, err = h.svc.FindLearningResources(ctx, freeCaller, LearningRequest{Topic: "Go"})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	assert.Equal(t, 0, h.providerCalls())
	assert.Equal(t, 0, h.docCalls)
}

func TestGenerateImage(t *testing.T) {
	h := newHarness(t)

	url, err := h.svc.GenerateImage(context.Background(), premiumCaller, ImageRequest{Prompt: "a lighthouse", Publish: true})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/img.png", url)
	require.Len(t, h.store.sources, 1)
	assert.Equal(t, []byte("png"), h.store.sources[0].Data)
	assert.Equal(t, "image/png", h.store.sources[0].ContentType)

	saved := h.creations.all()
	require.Len(t, saved, 1)
	assert.Equal(t, models.KindImage, saved[0].Type)
	assert.True(t, saved[0].Publish)
	assert.Equal(t, url, saved[0].Content)
}

func TestRemoveBackground(t *testing.T) {
	h := newHarness(t)
	path := tempFile(t, "photo.png", 32)

	url, err := h.svc.RemoveBackground(context.Background(), premiumCaller, FileRequest{Path: path, ContentType: "image/png"})
	require.NoError(t, err)
	assert.Contains(t, url, "e_background_removal")
	assert.Equal(t, []storage.Transform{storage.BackgroundRemoval()}, h.store.transforms)
	assert.True(t, fileGone(t, path))
}

func TestRemoveObjectRejectsMultipleTokens(t *testing.T) {
	h := newHarness(t)
	path := tempFile(t, "street.jpg", 32)

	_, err := h.svc.RemoveObject(context.Background(), premiumCaller, ObjectRemovalRequest{
		FileRequest: FileRequest{Path: path},
		Object:      "red car blue",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 0, h.providerCalls())
	assert.True(t, fileGone(t, path), "temp upload must be removed")
}

func TestRemoveObject(t *testing.T) {
	h := newHarness(t)
	path := tempFile(t, "street.jpg", 32)

	url, err := h.svc.RemoveObject(context.Background(), premiumCaller, ObjectRemovalRequest{
		FileRequest: FileRequest{Path: path},
		Object:      " car ",
	})
	require.NoError(t, err)
	assert.Contains(t, url, "e_gen_remove:prompt_car")
	assert.True(t, fileGone(t, path))

	saved := h.creations.all()
	require.Len(t, saved, 1)
	assert.Equal(t, "Removed car from image", saved[0].Prompt)
}

func TestRemoveObjectStorageFailureStillCleansUp(t *testing.T) {
	h := newHarness(t)
	h.store.err = apperr.Upstream("image storage upload failed", errors.New("boom"))
	path := tempFile(t, "street.jpg", 32)

	_, err := h.svc.RemoveObject(context.Background(), premiumCaller, ObjectRemovalRequest{
		FileRequest: FileRequest{Path: path},
		Object:      "car",
	})
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.True(t, fileGone(t, path))
	assert.Empty(t, h.creations.all())
}

func TestObjectName(t *testing.T) {
	got, err := ObjectName("  dog ")
	require.NoError(t, err)
	assert.Equal(t, "dog", got)

	for _, bad := range []string{"", "   ", "red car", "a\tb"} {
		_, err := ObjectName(bad)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), bad)
	}
}

func TestReviewResumeRejectsOversizeFile(t *testing.T) {
	h := newHarness(t)
	path := tempFile(t, "resume.pdf", 6<<20)

	_, err := h.svc.ReviewResume(context.Background(), premiumCaller, FileRequest{Path: path})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, apperr.PublicMessage(err), "exceeds 5MB limit")
	assert.Equal(t, 0, h.text.calls)
	assert.Equal(t, 0, h.docCalls)
	assert.True(t, fileGone(t, path))
}

func TestReviewResumeExtractsScore(t *testing.T) {
	h := newHarness(t)
	h.text.reply = "**ATS SCORE:** 72 - decent\n\nStrengths: ..."
	path := tempFile(t, "resume.pdf", 1024)

	review, err := h.svc.ReviewResume(context.Background(), premiumCaller, FileRequest{Path: path})
	require.NoError(t, err)
	require.NotNil(t, review.ATSScore)
	assert.Equal(t, 72, *review.ATSScore)
	assert.Contains(t, h.text.prompts[0], h.docText)
	assert.True(t, fileGone(t, path))

	saved := h.creations.all()
	require.Len(t, saved, 1)
	assert.Equal(t, models.KindResumeReview, saved[0].Type)
}

func TestReviewResumeWithoutScore(t *testing.T) {
	h := newHarness(t)
	h.text.reply = "Solid resume overall."

	review, err := h.svc.ReviewResume(context.Background(), premiumCaller, FileRequest{Path: tempFile(t, "r.pdf", 10)})
	require.NoError(t, err)
	assert.Nil(t, review.ATSScore)
}

func TestReviewResumeUnreadablePDF(t *testing.T) {
	h := newHarness(t)
	h.docErr = errors.New("malformed xref")
	path := tempFile(t, "r.pdf", 10)

	_, err := h.svc.ReviewResume(context.Background(), premiumCaller, FileRequest{Path: path})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 0, h.text.calls)
	assert.True(t, fileGone(t, path))
}

func TestReviewResumeRequiresFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.ReviewResume(context.Background(), premiumCaller, FileRequest{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDiscoverJobs(t *testing.T) {
	h := newHarness(t)
	h.text.reply = "Here you go:\n```json\n[\"Backend Engineer\", \"SRE\"]\n```"

	jobs, err := h.svc.DiscoverJobs(context.Background(), premiumCaller, FileRequest{Path: tempFile(t, "r.pdf", 10)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Backend Engineer", "SRE"}, jobs)

	saved := h.creations.all()
	require.Len(t, saved, 1)
	var stored []string
	require.NoError(t, json.Unmarshal([]byte(saved[0].Content), &stored))
	assert.Equal(t, jobs, stored)
}

func TestDiscoverJobsFallsBackToDefaults(t *testing.T) {
	h := newHarness(t)
	h.text.reply = "[]"

	jobs, err := h.svc.DiscoverJobs(context.Background(), premiumCaller, FileRequest{Path: tempFile(t, "r.pdf", 10)})
	require.NoError(t, err)
	assert.Len(t, jobs, 4)
}

func TestSearchJobsAlwaysComputesBoardURLs(t *testing.T) {
	h := newHarness(t)
	h.text.reply = `{"keywords":["golang","backend"],"summary":"Look for Go roles.","urls":{"linkedin":"https://evil.example"}}`

	search, err := h.svc.SearchJobs(context.Background(), premiumCaller, JobSearchRequest{JobTitle: "Go Developer", Location: "Berlin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "backend"}, search.Keywords)
	assert.Equal(t, "Look for Go roles.", search.Summary)
	assert.Equal(t, JobBoardURLs("Go Developer", "Berlin"), search.URLs)
}

func TestSearchJobsWithUnusableModelOutput(t *testing.T) {
	h := newHarness(t)
	h.text.reply = "Sorry, I cannot help with that."

	search, err := h.svc.SearchJobs(context.Background(), premiumCaller, JobSearchRequest{JobTitle: "Data Analyst"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Data", "Analyst"}, search.Keywords)
	assert.NotEmpty(t, search.Summary)
	assert.NotEmpty(t, search.URLs.LinkedIn)
	assert.NotEmpty(t, search.URLs.Indeed)
	assert.NotEmpty(t, search.URLs.Glassdoor)
	assert.NotEmpty(t, search.URLs.Naukri)
	assert.NotEmpty(t, search.URLs.Google)
}

func TestSearchJobsRequiresTitle(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.SearchJobs(context.Background(), premiumCaller, JobSearchRequest{Location: "Paris"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 0, h.text.calls)
}

func TestFindLearningResources(t *testing.T) {
	h := newHarness(t)
	h.text.reply = `[{"title":"Tour of Go","url":"https://go.dev/tour","kind":"course","description":"Official tour"},{"title":"Effective Go"}]`

	resources, err := h.svc.FindLearningResources(context.Background(), premiumCaller, LearningRequest{Topic: "Go"})
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "https://go.dev/tour", resources[0].URL)
	assert.Equal(t, SearchURL("Effective Go"), resources[1].URL)
	assert.Contains(t, h.text.prompts[0], "beginner")
}

func TestLearningResourcesFallbacks(t *testing.T) {
	lines := LearningResources("1. The Go Programming Language\n2. Go by Example", "Go")
	require.Len(t, lines, 2)
	assert.Equal(t, "Go by Example", lines[1].Title)
	assert.Equal(t, "search", lines[1].Kind)

	empty := LearningResources("", "Rust")
	require.Len(t, empty, 1)
	assert.Equal(t, "Rust", empty[0].Title)
}

func TestImageEditsRejectOversizeFiles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	bg := tempFile(t, "big.png", 6<<20)
	_, err := h.svc.RemoveBackground(ctx, premiumCaller, FileRequest{Path: bg})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Image file size exceeds 5MB limit", apperr.PublicMessage(err))
	assert.True(t, fileGone(t, bg))

	obj := tempFile(t, "big.jpg", 6<<20)
	_, err = h.svc.RemoveObject(ctx, premiumCaller, ObjectRemovalRequest{FileRequest: FileRequest{Path: obj}, Object: "car"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.True(t, fileGone(t, obj))

	assert.Equal(t, 0, h.store.calls)
	assert.Empty(t, h.creations.all())
}

func TestRecorderWithoutLogger(t *testing.T) {
	store := newMemCreations()
	store.insertErr = errors.New("db down")
	rec := NewCreationRecorder(store, nil)

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), "u", "p", "c", models.KindArticle, false)
	})
}
