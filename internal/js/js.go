package js

// VISIBLE_TEXT returns the rendered text of the document, which unlike the
// HTML source leaves out hidden elements.
var VISIBLE_TEXT string = `
() => {
    if (!document.body) return "";
    return document.body.innerText || document.body.textContent || "";
}
`

// DOCUMENT_URL is the url after redirects as seen by the document itself.
var DOCUMENT_URL string = `
() => document.location.href
`
