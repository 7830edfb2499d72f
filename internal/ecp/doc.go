// Package ecp talks to streaming devices over their External Control
// Protocol: plain HTTP on port 8060.
//
// # Commands
//
//	keypress/<Key>      POST  Home, Right, Left, Up, Down, Back, Select,
//	                          VolumeUp, VolumeDown, PowerOn, PowerOff, Lit_<char>
//	launch/<AppID>      POST  start an app
//	query/active-app    GET   foreground app (XML)
//	query/media-player  GET   player state and liveness (XML)
//
// # Delivery
//
// Client.Send makes up to MaxAttempts attempts with a fixed RetryDelay
// between them, closing the response body after every attempt. Failures come
// back as *TransportError with a Type and a Retryable flag; callers treat a
// failed command as one that never happened.
//
// # Parsing
//
// ParseActiveApp, IsLive and PlayerState read the two query responses.
// TCPProber answers the reachability question with a short TCP dial.
package ecp
