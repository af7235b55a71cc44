package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
)

// ExecOptions translates the application config into chromedp allocator
// options. proxyAddr, when non-empty, is the local forwarder address all
// browser traffic is pointed at.
func ExecOptions(cfg *config.Config, proxyAddr string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		// Required on hardened container hosts.
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(cfg.Browser.Viewport.Width, cfg.Browser.Viewport.Height),
		chromedp.UserAgent(cfg.Browser.UserAgent),
		// Silences the "Chrome is being controlled" infobar and the
		// automation blink feature, both trivially detectable.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	if cfg.Browser.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.Browser.IgnoreTLSError {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if proxyAddr != "" {
		opts = append(opts, chromedp.ProxyServer(fmt.Sprintf("http://%s", proxyAddr)))
	}

	for _, arg := range cfg.Browser.Args {
		opts = append(opts, flagFromArg(arg))
	}
	return opts
}

// flagFromArg converts one config "args" entry into an allocator option,
// accepting both bare switches and key=value forms with or without the
// leading dashes.
func flagFromArg(arg string) chromedp.ExecAllocatorOption {
	if !strings.Contains(arg, "=") {
		return chromedp.Flag(strings.TrimPrefix(arg, "--"), true)
	}
	parts := strings.SplitN(arg, "=", 2)
	return chromedp.Flag(strings.TrimPrefix(parts[0], "--"), parts[1])
}
