// Package fhem talks to the FHEMWEB command interface of a FHEM server.
//
// Every command is a single GET against {address}/fhem with the query
// parameters cmd, XHR=1 and fwcsrf. FHEMWEB answers each request with its
// current csrf token in the X-FHEM-csrfToken header; the Client remembers
// the most recent value and, when a command is rejected with 400 because the
// token went stale, retries it exactly once with the fresh token.
//
// # Power control
//
//	holder := settings.NewHolder(cfg)
//	client := fhem.NewClient(holder)
//
//	if err := client.TurnOn(ctx); err != nil {
//	    fmt.Println(fhem.ShortMessage(err))
//	}
//
//	on, err := client.State(ctx)
//
// State reads Results[0].Readings[<reading>].Value from the jsonlist2 reply
// and compares it with the configured on and off values. Values starting
// with "set_" are reported as off while the device switches.
//
// An empty address disables the client: every operation returns without a
// network call and State reports false.
package fhem
