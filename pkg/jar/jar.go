package jar

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rpcjar/rpcjar/pkg/logger"
)

// Jar is a thread-safe in-memory cookie store keyed by
// (domain, path, name). At most one live record exists per key;
// storing a record under an existing key replaces it.
//
// Records are kept in insertion order, with an overwritten record
// moved to the end, so repeated lookups return pairs in a stable,
// most-recently-updated-last order.
type Jar struct {
	mu      sync.Mutex
	records []*Record
	log     logger.Logger
	now     func() time.Time
}

// Option configures a Jar.
type Option func(*Jar)

// WithLogger sets the logger used for skipped-cookie diagnostics.
// The default discards all messages.
func WithLogger(l logger.Logger) Option {
	return func(j *Jar) { j.log = l }
}

// New creates an empty cookie jar. Each jar is independent; embedding
// code owns the instance and passes it to the adapters that need it.
func New(opts ...Option) *Jar {
	j := &Jar{
		log: logger.NewNopLogger(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// SetCookies stores the cookies carried by raw set-cookie header
// values received in a response from origin. scopePath is the request
// path that triggered the response; it scopes the default Path of
// records that carry no Path attribute. When scopePath is empty the
// origin URL's path is used.
//
// Individual values that cannot be parsed, or that carry a Domain not
// matching the origin host, are logged and skipped without affecting
// the rest of the batch. A value that is already expired deletes any
// stored record with the same key instead of being stored.
//
// SetCookies returns the number of records stored.
func (j *Jar) SetCookies(origin *url.URL, scopePath string, values []string) int {
	if origin == nil || len(values) == 0 {
		return 0
	}
	host := origin.Hostname()
	if scopePath == "" {
		scopePath = origin.Path
	}
	now := j.now()

	// Parse and resolve defaults before taking the lock; the lock
	// only covers the store mutation.
	var keep []*Record
	var drop []*Record
	for _, raw := range values {
		rec, err := parseSetCookie(raw, now)
		if err != nil {
			j.log.Warning("jar: skipping cookie from %s: %v", host, err)
			continue
		}
		if rec.Domain == "" {
			rec.Domain = host
		} else if !strings.EqualFold(rec.Domain, host) {
			j.log.Warning("jar: rejecting cookie %q: domain %q does not match host %q",
				rec.Name, rec.Domain, host)
			continue
		}
		if rec.Path == "" {
			rec.Path = defaultPath(scopePath)
		}
		if rec.Expired(now) {
			drop = append(drop, rec)
		} else {
			keep = append(keep, rec)
		}
	}
	if len(keep) == 0 && len(drop) == 0 {
		return 0
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, rec := range drop {
		j.removeLocked(rec.Domain, rec.Path, rec.Name)
	}
	for _, rec := range keep {
		j.removeLocked(rec.Domain, rec.Path, rec.Name)
		j.records = append(j.records, rec)
	}
	return len(keep)
}

// Cookies returns the "name=value" pairs to attach to a request for
// target, in stored order. A record matches when its domain equals
// the target host (case-insensitively), its path is a directory-aware
// prefix of the target path, and, for secure records, the target
// scheme is encrypted. Expired records encountered during the scan
// are evicted. An empty result means no cookie header should be sent.
func (j *Jar) Cookies(target *url.URL) []string {
	if target == nil {
		return nil
	}
	host := target.Hostname()
	path := target.Path
	if path == "" {
		path = "/"
	}
	encrypted := encryptedScheme(target.Scheme)
	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()

	var pairs []string
	live := j.records[:0]
	for _, rec := range j.records {
		if rec.Expired(now) {
			continue
		}
		live = append(live, rec)
		if !strings.EqualFold(rec.Domain, host) {
			continue
		}
		if !pathMatch(rec.Path, path) {
			continue
		}
		if rec.Secure && !encrypted {
			continue
		}
		pairs = append(pairs, rec.Pair())
	}
	j.records = live
	return pairs
}

// Remove deletes the record stored under (domain, path, name) and
// reports whether one existed.
func (j *Jar) Remove(domain, path, name string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.removeLocked(domain, path, name)
}

// Clear removes every stored record.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = nil
}

// Len returns the number of stored records, including any whose
// expiry has passed but which have not been touched since.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

// Records returns a snapshot of the stored records for diagnostics.
// Mutating the returned records does not affect the jar.
func (j *Jar) Records() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Record, len(j.records))
	for i, rec := range j.records {
		out[i] = *rec
	}
	return out
}

func (j *Jar) removeLocked(domain, path, name string) bool {
	for i, rec := range j.records {
		if rec.Name == name && rec.Path == path && strings.EqualFold(rec.Domain, domain) {
			j.records = append(j.records[:i], j.records[i+1:]...)
			return true
		}
	}
	return false
}

// defaultPath returns the directory of the request path that set the
// cookie: the prefix up to and including the last '/'. A path with no
// '/' defaults to "/".
func defaultPath(requestPath string) string {
	if i := strings.LastIndex(requestPath, "/"); i >= 0 {
		return requestPath[:i+1]
	}
	return "/"
}

// pathMatch reports whether a stored cookie path scopes the request
// path. The match is directory-aware: "/a/b" matches "/a/b" and
// "/a/b/c" but not "/a/bc".
func pathMatch(cookiePath, requestPath string) bool {
	if requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || requestPath[len(cookiePath)] == '/'
}

// encryptedScheme reports whether the scheme denotes an encrypted
// transport for the purpose of secure-cookie filtering.
func encryptedScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "https", "wss":
		return true
	}
	return false
}
