// Package websocket serves the live dashboard channel at /ws.
//
// Each connection is an independent session. The client sends
//
//	{"type":"filter:changed","data":{"min_year":2020,"max_year":2021,"journal":"Lancet"}}
//
// and receives one {"type":"dashboard:update"} reply holding the rebuilt
// DashboardView, or an {"type":"error"} reply with a code and message.
// Messages are handled one at a time and nothing is remembered between
// them. The Hub only tracks sessions for health reporting and shutdown.
package websocket
