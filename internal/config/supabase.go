package config

import (
	"strings"
	"sync"
	"time"
)

type SupabaseConfig struct {
	URL            string
	Key            string
	Bucket         string
	SignedURLTTL   time.Duration
	RequestTimeout time.Duration
}

var (
	supabaseConfig *SupabaseConfig
	supabaseOnce   sync.Once
)

func LoadSupabaseConfig() *SupabaseConfig {
	supabaseOnce.Do(func() {
		supabaseConfig = newSupabaseConfig()
	})
	return supabaseConfig
}

func newSupabaseConfig() *SupabaseConfig {
	return &SupabaseConfig{
		URL:            strings.TrimRight(firstEnv("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"), "/"),
		Key:            firstEnv("SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"),
		Bucket:         getEnv("SUPABASE_BUCKET", "submissions"),
		SignedURLTTL:   getDuration("SIGNED_URL_EXPIRY", 7*24*time.Hour),
		RequestTimeout: getDuration("SUPABASE_REQUEST_TIMEOUT", 2*time.Minute),
	}
}
