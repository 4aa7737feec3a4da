package chat

import (
	"github.com/odvcencio/pagechat/pkg/browser"
	"github.com/odvcencio/pagechat/pkg/capture"
	"github.com/odvcencio/pagechat/pkg/config"
	"github.com/odvcencio/pagechat/pkg/logging"
	"github.com/odvcencio/pagechat/pkg/richtext"
	"github.com/odvcencio/pagechat/pkg/telemetry"
)

// FromConfig assembles the walker, extractor, poller and conversation for
// page from cfg.
func FromConfig(page browser.Page, cfg *config.Config, log *logging.Logger, hub *telemetry.Hub) *Conversation {
	if log == nil {
		log = logging.Nop()
	}

	var walker *richtext.Walker
	if cfg.Walker.Enabled {
		walker = richtext.New(richtext.Options{
			CodeBlockMarkers:  cfg.Selectors.CodeBlock,
			CodeLabelSelector: cfg.Selectors.CodeLabel,
			MaxDepth:          cfg.Walker.MaxDepth,
		})
	}

	extractor := capture.NewExtractor(page, capture.ExtractOptions{
		CopyButton:               cfg.Selectors.CopyButton,
		CopyWait:                 cfg.Capture.CopyWait,
		ReplyText:                cfg.Selectors.ReplyText,
		PreferWalkerForPlainCopy: cfg.Capture.PreferWalkerForPlainCopy,
		Walker:                   walker,
	}, log.WithComponent("extract"))

	poller := capture.NewPoller(page, extractor, capture.Options{
		ReplyContainer:  cfg.Selectors.ReplyContainer,
		ReplyText:       cfg.Selectors.ReplyText,
		CompleteMarkers: cfg.Selectors.CompleteMarkers,
		PollInterval:    cfg.Capture.PollInterval,
		StableTicks:     cfg.Capture.StableTicks,
		InitialTimeout:  cfg.Capture.InitialTimeout,
		HardCeiling:     cfg.Capture.HardCeiling,
	}, capture.WithHub(hub), capture.WithLogger(log.WithComponent("capture")))

	return New(page, poller, Options{
		ReplyContainer: cfg.Selectors.ReplyContainer,
		PromptInput:    cfg.Selectors.PromptInput,
		SendButton:     cfg.Selectors.SendButton,
		PromptTimeout:  cfg.Capture.PromptTimeout,
	}, WithHub(hub), WithLogger(log.WithComponent("chat")))
}
