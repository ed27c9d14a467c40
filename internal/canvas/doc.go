// Package canvas defines the ankiplace domain model: the 32x32 pixel
// grid, registered users and their paint balances, review proofs, and
// the error taxonomy shared by every layer of the service.
//
// The package is dependency-light on purpose. The store, the write
// serializer, and the HTTP gateway all speak these types; none of them
// import each other's internals.
package canvas
