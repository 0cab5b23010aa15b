// The C ABI shim around the ncm package. Build with
//
//	go build -buildmode=c-shared -o libncmdump.so ./ffi
//
// Handles are registry integers rather than pointers, per the cgo
// pointer-passing rules; 0 is the null handle. Every entry point traps
// panics so a host process never sees a Go abort.
package main

/*
#include <stdlib.h>
*/
import "C"

//export CreateNeteaseCrypt
func CreateNeteaseCrypt(path *C.char) C.longlong {
	if path == nil {
		return 0
	}
	return C.longlong(createCrypt(C.GoString(path)))
}

//export Dump
func Dump(handle C.longlong, outputDir *C.char) C.int {
	dir := ""
	if outputDir != nil {
		dir = C.GoString(outputDir)
	}
	return C.int(dumpCrypt(int64(handle), dir))
}

//export FixMetadata
func FixMetadata(handle C.longlong) {
	fixMetadata(int64(handle))
}

//export DestroyNeteaseCrypt
func DestroyNeteaseCrypt(handle C.longlong) {
	destroyCrypt(int64(handle))
}

func main() {}
