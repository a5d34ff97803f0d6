package config

// Default returns a configuration with sensible defaults. Callers typically
// layer a YAML file's values on top of this via Load.
func Default() *Config {
	cfg := &Config{
		MyHostName: "mirror.example",
		MyPort:     80,
		MyScheme:   "http://",
		IsDev:      false,

		TargetDomain:     "origin.example",
		TargetScheme:     "https://",
		ForceHTTPSPolicy: ForceHTTPSNone,

		ConnectionKeepAliveEnable: true,
		StreamTransferEnable:      true,
		StreamBufferSize:          64 * 1024,
		StreamAsyncPreloadMax:     64,

		PossibleCharsets: []string{"utf-8", "gbk", "big5", "shift_jis", "euc-jp", "iso-8859-1"},
		TextLikeMimeTypes: []string{
			"text/", "application/json", "application/javascript",
			"application/xml", "application/xhtml+xml", "application/x-javascript",
		},
		CustomTextRewriterEnable: true,
		AllowedRemoteRespHeaders: []string{
			"content-type", "cache-control", "expires", "last-modified", "etag",
			"content-disposition", "content-language", "vary", "date",
		},

		LocalCacheEnable: true,
	}

	cfg.buildDerivedSets()
	return cfg
}
