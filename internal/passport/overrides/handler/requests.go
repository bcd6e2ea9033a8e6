package handler

// UpdateOverridesRequest is the body of PUT and PATCH /tenants/me/overrides.
// Keys outside the allow-list are dropped by the service, not rejected. A
// missing or null overrides object is treated as empty.
type UpdateOverridesRequest struct {
	Overrides map[string]any `json:"overrides"`
}

func (r *UpdateOverridesRequest) Validate() error {
	if r.Overrides == nil {
		r.Overrides = map[string]any{}
	}
	return nil
}

type OverridesResponse struct {
	OK        bool           `json:"ok,omitempty"`
	TenantID  string         `json:"tenant_id"`
	Overrides map[string]any `json:"overrides"`
	Changed   *bool          `json:"changed,omitempty"`
}
