package snyk

// Organization is a tenant boundary that groups targets
type Organization struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Target is a scannable entity (usually a repository) registered under an organization
type Target struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// UnknownTargetName is used when a target has no display name
const UnknownTargetName = "Unknown"

// orgListResponse is the JSON:API document returned by GET /rest/orgs
type orgListResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"data"`
}

// targetPageResponse is one page of GET /rest/orgs/{org_id}/targets
type targetPageResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			DisplayName *string `json:"display_name"`
		} `json:"attributes"`
	} `json:"data"`
	Links struct {
		Next *string `json:"next"`
	} `json:"links"`
}

func (p *targetPageResponse) targets() []Target {
	result := make([]Target, 0, len(p.Data))
	for _, item := range p.Data {
		name := UnknownTargetName
		if item.Attributes.DisplayName != nil {
			name = *item.Attributes.DisplayName
		}
		result = append(result, Target{ID: item.ID, Name: name})
	}
	return result
}

func (p *targetPageResponse) next() string {
	if p.Links.Next == nil {
		return ""
	}
	return *p.Links.Next
}
