// Package render loads pages in a headless Chrome so that script-inserted
// markup (Drop-in containers, Hosted Fields iframes) is visible to the
// extractor and detector.
//
// Rendering is optional and off by default. The browser is started lazily
// on the first Render call and shared by every render until Close.
package render
