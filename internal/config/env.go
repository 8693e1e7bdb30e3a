package config

import "strings"

// LGCMS_CACHE_BACKEND maps to cache.backend.
var envKeyReplacer = strings.NewReplacer(".", "_")
