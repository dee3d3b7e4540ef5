// Package discovery advertises secure endpoints over mDNS and browses
// for peers on the local network.
//
// Endpoints publish the "_xnet._tcp" service type in the "local" domain
// with TXT records carrying the handshake role and version policy.
// Announce registers the records; the returned Announcer withdraws them
// on Shutdown. Browse streams discovered peers until the context is
// cancelled, and FindFirst is a convenience for one-shot lookups.
package discovery
