package server

import "html/template"

// welcomeVersion is reported in the welcome page's X-Powered-By header.
const welcomeVersion = "dev"

var welcomePageTmpl = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html><head><title>zmirror</title></head>
<body>
<h1>zmirror</h1>
<p>This host mirrors a remote site. Requests to any other path are forwarded
upstream and rewritten into mirror-space.</p>
</body></html>
`))
