// Package web embeds the server-rendered screens and their assets.
package web

import "embed"

// TemplatesFS holds the HTML pages and HTMX partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the client-side event plumbing.
//
//go:embed static/*
var StaticFS embed.FS
