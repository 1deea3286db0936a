// Package jobctx threads the tenant/job identifiers of the step currently
// executing through context.Context, so deep collaborators that only see
// a bare ctx (the computer-use loop's screenshot uploader) can still
// attribute what they store to the right tenant/job prefix.
package jobctx

import "context"

type key struct{}

type ids struct {
	TenantID string
	JobID    string
}

// With attaches tenantID/jobID to ctx.
func With(ctx context.Context, tenantID, jobID string) context.Context {
	return context.WithValue(ctx, key{}, ids{TenantID: tenantID, JobID: jobID})
}

// From reads the tenant/job IDs attached by With, returning ("", "") if
// none were attached.
func From(ctx context.Context) (tenantID, jobID string) {
	v, ok := ctx.Value(key{}).(ids)
	if !ok {
		return "", ""
	}
	return v.TenantID, v.JobID
}
