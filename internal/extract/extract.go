// Package extract scans raw text (a decoded chat export) for proxy config
// URIs and derives per-link metadata from the surrounding context.
package extract

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"

	"confighub/database/model"
	"confighub/logger"
	"confighub/util/common"

	"github.com/goccy/go-json"
)

// contextRadius is how many bytes around a match are searched for ping and
// location hints.
const contextRadius = 500

type grammar struct {
	protocol  model.Protocol
	re        *regexp.Regexp
	hostGroup int
	portGroup int
}

// The \b keeps a scheme from matching inside a longer one ("ss://" would
// otherwise match inside every vless:// and vmess:// URI).
var grammars = []grammar{
	{model.VLESS, regexp.MustCompile(`(?i)\bvless://([a-zA-Z0-9\-]+)@([^:\s]+):(\d+)(?:\?([^#\s]*))?(?:#([^\s]*))?`), 2, 3},
	{model.VMess, regexp.MustCompile(`(?i)\bvmess://([A-Za-z0-9+/=]+)`), 0, 0},
	{model.Trojan, regexp.MustCompile(`(?i)\btrojan://([a-zA-Z0-9\-]+)@([^:\s]+):(\d+)(?:\?([^#\s]*))?(?:#([^\s]*))?`), 2, 3},
	{model.Shadowsocks, regexp.MustCompile(`(?i)\bss://([A-Za-z0-9+/=]+)@([^:\s]+):(\d+)(?:#([^\s]*))?`), 2, 3},
	{model.MTProto, regexp.MustCompile(`(?i)\bmtproto://([A-Za-z0-9+/=]+)`), 0, 0},
}

var pingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)📶\s*پینگ[:\s]*(\d+)\s*ms`),
	regexp.MustCompile(`(?i)پینگ[:\s]*(\d+)\s*ms`),
	regexp.MustCompile(`(?i)ping[:\s]*(\d+)\s*ms`),
	regexp.MustCompile(`(\d+)\s*ms`),
}

var hostPattern = regexp.MustCompile(`(?i)(?:server|host|address)[:\s]+([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)

// Fingerprint derives the canonical dedup key of a link: the segment between
// "://" and the first "@", or the remainder after "://" when no "@" exists,
// or the whole link when there is no scheme; truncated to 50 characters.
//
// Links that share an identity segment but differ in host/port collapse to
// the same fingerprint. That collision is intentional and load-bearing for
// compatibility with existing stored data; callers that need host+port in
// the identity must derive their own key.
func Fingerprint(link string) string {
	s := link
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "@"); j >= 0 {
			s = s[:j]
		}
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

// Extractor turns raw text into candidate config records, rewriting each
// link's fragment to the given branding remark.
type Extractor struct {
	Remark string
}

func NewExtractor(remark string) *Extractor {
	return &Extractor{Remark: remark}
}

// Extract scans the text with every protocol grammar and returns one record
// per non-overlapping match. A parse failure on a single match is logged and
// skipped, never aborting the rest. Candidates sharing the same
// query-stripped link are collapsed before returning.
func (e *Extractor) Extract(text string) []*model.ConfigRecord {
	var records []*model.ConfigRecord

	for _, g := range grammars {
		for _, m := range g.re.FindAllStringSubmatchIndex(text, -1) {
			rec, err := e.parseMatch(text, g, m)
			if err != nil {
				logger.Warningf("skipping %s match: %v", g.protocol, err)
				continue
			}
			records = append(records, rec)
		}
	}

	return collapse(records)
}

func (e *Extractor) parseMatch(text string, g grammar, m []int) (*model.ConfigRecord, error) {
	link := text[m[0]:m[1]]

	start := max(0, m[0]-contextRadius)
	end := min(len(text), m[1]+contextRadius)
	window := text[start:end]

	ping := extractPing(window)
	location := extractLocation(window)
	remark := originalRemark(link, g.protocol)

	server := ""
	var port uint16
	if g.hostGroup > 0 && m[2*g.hostGroup] >= 0 {
		server = text[m[2*g.hostGroup]:m[2*g.hostGroup+1]]
	}
	if g.portGroup > 0 && m[2*g.portGroup] >= 0 {
		raw := text[m[2*g.portGroup]:m[2*g.portGroup+1]]
		parsed, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return nil, common.NewErrorf("port %q out of range", raw)
		}
		port = uint16(parsed)
	}
	if server == "" {
		if hm := hostPattern.FindStringSubmatch(window); hm != nil {
			server = hm[1]
		} else {
			server = "unknown"
		}
	}

	newLink := rewriteFragment(link, e.Remark)

	return &model.ConfigRecord{
		Fingerprint:    Fingerprint(link),
		Protocol:       g.protocol,
		Link:           newLink,
		OriginalLink:   link,
		OriginalRemark: remark,
		Server:         server,
		Port:           port,
		Location:       location,
		Ping:           ping,
		Quality:        QualityOf(ping),
		Source:         remark,
	}, nil
}

// extractPing finds a digits-before-"ms" value near the link, trying labeled
// variants before the bare form. Returns "---" when nothing matches.
func extractPing(window string) string {
	for _, re := range pingPatterns {
		if m := re.FindStringSubmatch(window); m != nil {
			return m[1] + "ms"
		}
	}
	return "---"
}

// extractLocation walks the ordered flag table and returns "<flag> <name>"
// for the first entry contained in the window, or "Unknown".
func extractLocation(window string) string {
	for _, lf := range locationFlags {
		if strings.Contains(window, lf.Name) {
			return lf.Flag + " " + lf.Name
		}
	}
	return "Unknown"
}

// QualityOf maps a ping string to a tier: ≤50ms green, ≤150ms yellow,
// above that red; unparsable values are unknown.
func QualityOf(ping string) model.Quality {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(ping, "ms")))
	if err != nil {
		return model.QualityUnknown
	}
	switch {
	case n <= 50:
		return model.QualityGreen
	case n <= 150:
		return model.QualityYellow
	default:
		return model.QualityRed
	}
}

// originalRemark recovers the link's own name: the fragment when present;
// for VMess, the "ps" (or "name") field of the base64 JSON payload.
func originalRemark(link string, protocol model.Protocol) string {
	if i := strings.LastIndex(link, "#"); i >= 0 {
		return link[i+1:]
	}

	if protocol == model.VMess {
		payload := strings.TrimPrefix(link, "vmess://")
		if pad := len(payload) % 4; pad != 0 {
			payload += strings.Repeat("=", 4-pad)
		}
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err == nil {
			var meta struct {
				Ps   string `json:"ps"`
				Name string `json:"name"`
			}
			if err := json.Unmarshal(raw, &meta); err == nil {
				if meta.Ps != "" {
					return meta.Ps
				}
				if meta.Name != "" {
					return meta.Name
				}
			}
		}
	}

	return "Unknown"
}

// rewriteFragment replaces (or appends) the fragment of the link with the
// branding remark, leaving everything before "#" untouched.
func rewriteFragment(link string, remark string) string {
	base := link
	if i := strings.Index(link, "#"); i >= 0 {
		base = link[:i]
	}
	return base + "#" + remark
}

// collapse drops candidates whose query-stripped link was already seen;
// overlapping grammars can match the identical URI.
func collapse(records []*model.ConfigRecord) []*model.ConfigRecord {
	seen := make(map[string]bool, len(records))
	out := records[:0]
	for _, rec := range records {
		key := rec.Link
		if i := strings.Index(key, "?"); i >= 0 {
			key = key[:i]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}
