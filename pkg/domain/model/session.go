package model

// AppAPIHeaders are the AppAPI headers of an inbound request. They are forwarded as-is
// on every call to the storage backend.
type AppAPIHeaders struct {
	AAVersion     string
	ExAppID       string
	ExAppVersion  string
	Authorization string `masq:"secret"`
	RequestID     string
}

// Session is the authenticated identity a pipeline run acts as. Exactly one of AppAPI or
// Password is used to authenticate against the storage backend.
type Session struct {
	UserID   string
	Secret   string `masq:"secret"`
	AppAPI   *AppAPIHeaders
	Password string `masq:"secret"`
}
