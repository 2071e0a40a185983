// Package ipcchan provides unidirectional message channels between processes
// and the one-shot rendezvous used to hand them to a freshly spawned peer.
//
// A channel is a unix SOCK_SEQPACKET socketpair: the Sender owns one end and
// the Receiver the other, so frames arrive whole and in send order. Either
// endpoint can travel to another process inside a Pair, which is carried over
// a OneShotServer connection as SCM_RIGHTS file descriptors. Once transferred,
// the local copies are closed and the receiving process owns the endpoints.
//
// A OneShotServer listens on a named socket, accepts exactly one connection,
// and unlinks itself. Its socket path is the rendezvous token handed to the
// peer out of band.
package ipcchan
