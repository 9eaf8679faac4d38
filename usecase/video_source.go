package usecase

import (
	"net/url"
	"strings"

	"crosspost/domain/model"
)

// SourceResolver picks how the platform obtains the video bytes. Only https
// URLs on allow-listed hosts (or their subdomains) are pulled by the platform.
type SourceResolver struct {
	domains []string
}

func NewSourceResolver(domains []string) SourceResolver {
	clean := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			clean = append(clean, d)
		}
	}
	return SourceResolver{domains: clean}
}

func (r SourceResolver) Resolve(rawURL string) model.SourceMode {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(u.Scheme, "https") {
		return model.SourceFileUpload
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return model.SourceFileUpload
	}
	for _, d := range r.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return model.SourcePullFromURL
		}
	}
	return model.SourceFileUpload
}
