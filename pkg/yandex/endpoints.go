package yandex

// ImagesURL is the entry point for reverse image search.
const ImagesURL = "https://yandex.com/images/"
