package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/pagechat/pkg/browser"
	pcerrors "github.com/odvcencio/pagechat/pkg/errors"
	"github.com/odvcencio/pagechat/pkg/richtext"
)

func newTestExtractor(page *fakePage, walker bool) *Extractor {
	opts := ExtractOptions{
		CopyButton:               copySel,
		PreferWalkerForPlainCopy: true,
	}
	if walker {
		opts.Walker = richtext.New(richtext.DefaultOptions())
	}
	return NewExtractor(page, opts, nil)
}

func reply(page *fakePage) browser.Element {
	return &fakeElement{page: page}
}

func TestExtractPrefersWalkerOverPlainCopy(t *testing.T) {
	page := newFakePage(frame{
		replies: []string{"one\ntwo"},
		html:    `<div class="reply"><ul><li>one</li><li>two</li></ul></div>`,
	})
	page.copyButton = true
	page.copyText = "plain sentence, no markdown"

	res, err := newTestExtractor(page, true).Extract(context.Background(), reply(page))
	require.NoError(t, err)

	assert.Equal(t, SourceDomWalk, res.Source)
	assert.Equal(t, "- one\n- two", res.Text)
	assert.True(t, res.LooksLikeMarkdown)
	assert.Equal(t, 1, page.copied)
}

func TestExtractAcceptsMarkdownCopy(t *testing.T) {
	page := newFakePage(frame{replies: []string{"Title"}})
	page.copyButton = true
	page.copyText = "# Title\n\n```go\nfmt.Println(1)\n```"

	res, err := newTestExtractor(page, true).Extract(context.Background(), reply(page))
	require.NoError(t, err)

	assert.Equal(t, SourceCopyAction, res.Source)
	assert.Equal(t, page.copyText, res.Text)
	assert.True(t, res.LooksLikeMarkdown)
}

func TestExtractAcceptsPlainCopyWithoutWalker(t *testing.T) {
	page := newFakePage(frame{replies: []string{"ignored"}})
	page.copyButton = true
	page.copyText = "plain sentence, no markdown"

	res, err := newTestExtractor(page, false).Extract(context.Background(), reply(page))
	require.NoError(t, err)

	assert.Equal(t, SourceCopyAction, res.Source)
	assert.Equal(t, "plain sentence, no markdown", res.Text)
	assert.False(t, res.LooksLikeMarkdown)
}

func TestExtractCopyFailureFallsThrough(t *testing.T) {
	page := newFakePage(frame{replies: []string{"walked"}})
	page.copyButton = true
	page.copyErr = browser.ErrNoClipboard

	res, err := newTestExtractor(page, true).Extract(context.Background(), reply(page))
	require.NoError(t, err, "copy failures never surface")
	assert.Equal(t, SourceDomWalk, res.Source)
	assert.Equal(t, "walked", res.Text)
}

func TestExtractPlainTextWhenWalkerEmpty(t *testing.T) {
	page := newFakePage(frame{replies: []string{"just words"}})
	page.htmlErr = errors.New("detached")

	res, err := newTestExtractor(page, true).Extract(context.Background(), reply(page))
	require.NoError(t, err)
	assert.Equal(t, SourcePlainText, res.Source)
	assert.Equal(t, "just words", res.Text)
}

func TestExtractConvertsSnapshotWhenTextUnavailable(t *testing.T) {
	page := newFakePage(frame{
		replies: []string{"unused"},
		html:    `<div class="reply"><p>Hello there</p></div>`,
	})
	page.textErr = errors.New("innerText unavailable")

	res, err := newTestExtractor(page, false).Extract(context.Background(), reply(page))
	require.NoError(t, err)
	assert.Equal(t, SourcePlainText, res.Source)
	assert.Contains(t, res.Text, "Hello there")
}

func TestExtractFallsBackToPlainCopyPayload(t *testing.T) {
	page := newFakePage(frame{replies: []string{""}})
	page.copyButton = true
	page.copyText = "plain words"
	page.htmlErr = errors.New("detached")

	res, err := newTestExtractor(page, true).Extract(context.Background(), reply(page))
	require.NoError(t, err)
	assert.Equal(t, SourceCopyAction, res.Source)
	assert.Equal(t, "plain words", res.Text)
}

func TestExtractEmptyIsReported(t *testing.T) {
	page := newFakePage(frame{replies: []string{""}})
	page.htmlErr = errors.New("detached")

	res, err := newTestExtractor(page, true).Extract(context.Background(), reply(page))
	require.Error(t, err)
	assert.True(t, pcerrors.IsCode(err, pcerrors.ErrCodeExtractEmpty))
	assert.Equal(t, SourcePlainText, res.Source)
	assert.Equal(t, "", res.Text)
}

func TestExtractNormalizesResult(t *testing.T) {
	page := newFakePage(frame{replies: []string{"x"}})
	page.copyButton = true
	page.copyText = "# Notes\n\nthis line was\nwrapped by the page"

	res, err := newTestExtractor(page, true).Extract(context.Background(), reply(page))
	require.NoError(t, err)
	assert.Equal(t, "# Notes\n\nthis line was wrapped by the page", res.Text)
}

func TestExtractWithoutCopyButtonSkipsIntercept(t *testing.T) {
	page := newFakePage(frame{replies: []string{"text"}})
	page.copyText = "# never read"

	res, err := newTestExtractor(page, true).Extract(context.Background(), reply(page))
	require.NoError(t, err)
	assert.Equal(t, 0, page.copied)
	assert.Equal(t, SourceDomWalk, res.Source)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "copy_action", SourceCopyAction.String())
	assert.Equal(t, "dom_walk", SourceDomWalk.String())
	assert.Equal(t, "plain_text_fallback", SourcePlainText.String())
	assert.Equal(t, "unknown", Source(9).String())
}
