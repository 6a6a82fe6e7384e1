package session

import "time"

// timeNow is a package-level variable so tests can control time.
var timeNow = time.Now
