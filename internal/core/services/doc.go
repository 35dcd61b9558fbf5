// Package services implements the driving ports: federated search,
// synthesis, comparison, relationship discovery and the two routers.
//
// Services depend only on driven ports. Every provider call goes through a
// ratelimit.Invoker, and failures of one source or model degrade a result
// rather than failing it.
package services
