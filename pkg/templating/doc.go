// Package templating renders notification templates. Templates use Go
// text/template syntax with an allow-listed function set (Sprig's hermetic
// functions plus include) and may only include files from one root directory.
package templating
