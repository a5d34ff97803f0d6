package regexlib

import "regexp"

// CookieDomain matches the `domain=` attribute of a Set-Cookie value,
// capturing the (optionally leading-dot) host it names (spec.md §4.A:
// `\bdomain=(\.?host)\b`).
var CookieDomain = regexp.MustCompile(`(?i)\bdomain=(?P<host>\.?[a-zA-Z0-9.-]+)\b`)

// VerifyHeader matches the zmirror_verify=<hex> cookie fragment that the
// client-facing cookie header carries internally and that must never reach
// upstream (spec.md §4.C).
var VerifyHeader = regexp.MustCompile(`zmirror_verify=[0-9a-fA-F]+;?\s*`)
