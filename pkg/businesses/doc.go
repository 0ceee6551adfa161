// Package businesses manages the tenants of the platform: their address,
// contact details, advertised services and weekly schedule.
//
// Callers holding manage_businesses see every business. Everyone else sees
// only the business their own user record points at; other businesses are
// reported as not found rather than forbidden.
package businesses
