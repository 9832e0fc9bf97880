package rulesoforigin

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	exportSelectOpener = `#divControlsFrontPage .col-md-6:nth-of-type(1) .select2-selection`
	importSelectOpener = `#divControlsFrontPage .col-md-6:nth-of-type(2) .select2-selection`
	select2SearchInput = `.select2-container--open input.select2-search__field`
	productInput       = `#product-list`
	resultsContainer   = `#fta-horz-list`
)

// renderComparePage drives the public rules-of-origin comparison page: pick
// the export and import countries in their select2 widgets, enter the
// product, and return the rendered results HTML. The page is a JS application,
// so a plain GET would return an empty shell.
func renderComparePage(ctx context.Context, compareURL, exporter, importer, product string, headless bool) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(compareURL),
		chromedp.WaitVisible(exportSelectOpener, chromedp.ByQuery),

		selectCountry(exportSelectOpener, exporter),
		selectCountry(importSelectOpener, importer),

		chromedp.WaitVisible(productInput, chromedp.ByQuery),
		chromedp.Click(productInput, chromedp.ByQuery),
		chromedp.SendKeys(productInput, product+kb.Enter, chromedp.ByQuery),

		chromedp.WaitVisible(resultsContainer, chromedp.ByQuery),
		// The list fills in asynchronously after it becomes visible.
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML(resultsContainer, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render compare page: %w", err)
	}
	return html, nil
}

// selectCountry opens a select2 dropdown, types the country into its search
// box and confirms the highlighted option.
func selectCountry(opener, country string) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Click(opener, chromedp.ByQuery),
		chromedp.WaitVisible(select2SearchInput, chromedp.ByQuery),
		chromedp.SendKeys(select2SearchInput, country, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
		chromedp.SendKeys(select2SearchInput, kb.Enter, chromedp.ByQuery),
	}
}
