package browser

// Locators groups the locator chains for each UI role the run touches.
// Each chain is an ordered fallback list, independently swappable.
type Locators struct {
	// CameraButton opens the reverse-image-search upload dialog.
	CameraButton []Locator
	// FileInput receives the query image path.
	FileInput []Locator
	// ResultItems signal that the results page has loaded.
	ResultItems []Locator
	// SimilarTab switches to the similar-images results. Optional:
	// some result pages land on it directly.
	SimilarTab []Locator
	// ShowMore is the "load more" control, expected at most once.
	ShowMore []Locator
	// Thumbnails are the URL-bearing feed elements.
	Thumbnails []Locator
	// ResultLinks are anchor elements wrapping the original image URL
	// in an img_url query parameter.
	ResultLinks []Locator

	// ThumbnailAttrs are tried per thumbnail in priority order.
	ThumbnailAttrs []string
}

// DefaultLocators returns the chains for the Yandex Images UI.
func DefaultLocators() Locators {
	return Locators{
		CameraButton: []Locator{
			CSS("button[aria-label*='camera']"),
			CSS("button.cbir-button"),
			CSS(".search2__button_type_camera"),
			CSS("[class*='camera']"),
		},
		FileInput: []Locator{
			CSS("input[type='file']"),
		},
		ResultItems: []Locator{
			CSS(".serp-item"),
			CSS("[class*='serp-item']"),
		},
		SimilarTab: []Locator{
			XPath("//a[contains(text(), 'Similar')]"),
			XPath("//button[contains(text(), 'Similar')]"),
			CSS("a[href*='similar']"),
			CSS("[class*='similar']"),
		},
		ShowMore: []Locator{
			XPath("//button[contains(text(), 'Show more')]"),
			XPath("//button[contains(text(), 'show more')]"),
			CSS(".button_theme_action"),
			CSS("[class*='show-more']"),
			CSS("[class*='load-more']"),
		},
		Thumbnails: []Locator{
			CSS(".serp-item__link img"),
			CSS(".serp-item img"),
			CSS("[class*='serp-item'] img"),
			CSS(".MMImage-Origin"),
			CSS("img[src*='yandex']"),
		},
		ResultLinks: []Locator{
			CSS("a[href*='img_url']"),
		},
		ThumbnailAttrs: []string{"src", "data-src"},
	}
}
