// Package urlnorm canonicalizes page URLs so equivalent links share cooldown state.
package urlnorm

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// trackingParams never change page content.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"utm_id": {}, "utm_campaign_id": {}, "utm_content_id": {},
	"fbclid": {}, "fb_action_ids": {}, "fb_action_types": {}, "fb_ref": {}, "fb_source": {},
	"gclid": {}, "gclsrc": {}, "gcl_au": {}, "gac_ua": {}, "gac_gac": {},
	"msclkid": {}, "mc_cid": {}, "mc_eid": {},
	"zanpid": {}, "_hsenc": {}, "_hsmi": {}, "hsctatracking": {}, "hsa_acc": {}, "hsa_cam": {},
	"hsa_grp": {}, "hsa_ad": {}, "hsa_src": {}, "hsa_tgt": {}, "hsa_kw": {}, "hsa_mt": {},
	"hsa_net": {}, "hsa_ver": {}, "__s": {}, "vero_id": {}, "vero_conv": {},
	"mkt_tok": {}, "trk_contact": {}, "trk_msg": {}, "trk_module": {}, "trk_sid": {},
	"_ga": {}, "_gid": {}, "ref_": {}, "pd_rd_r": {}, "pd_rd_w": {}, "pd_rd_wg": {}, "pf_rd_p": {}, "pf_rd_r": {},
}

var (
	sessionParamPattern = regexp.MustCompile(`(_ts|_time|_rnd|_nonce|_sig|_cache)$`)
	multiSlash          = regexp.MustCompile(`/{2,}`)
)

// Canonical returns rawURL without tracking parameters or fragment, with a
// lowercase host and sorted query. Unparseable input is returned trimmed.
func Canonical(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return trimmed
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = stripDefaultPort(u.Scheme, strings.ToLower(u.Host))
	u.Fragment = ""
	u.RawFragment = ""

	path := multiSlash.ReplaceAllString(u.Path, "/")
	if path == "" {
		path = "/"
	}
	u.Path = path
	u.RawPath = ""

	if u.RawQuery != "" {
		params, err := url.ParseQuery(u.RawQuery)
		if err == nil {
			clean := url.Values{}
			for key, values := range params {
				lower := strings.ToLower(key)
				if _, ok := trackingParams[lower]; ok {
					continue
				}
				if sessionParamPattern.MatchString(lower) {
					continue
				}
				clean[key] = values
			}
			u.RawQuery = encodeSorted(clean)
		}
	}

	return u.String()
}

// Origin returns scheme://host[:port] for rawURL.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme + "://" + stripDefaultPort(scheme, strings.ToLower(u.Host)), nil
}

// Hostname returns the lowercase host of rawURL without port.
func Hostname(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}
	return strings.ToLower(u.Hostname()), nil
}

func stripDefaultPort(scheme, host string) string {
	switch {
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	}
	return host
}

// encodeSorted keeps value order per key while sorting keys.
func encodeSorted(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}
