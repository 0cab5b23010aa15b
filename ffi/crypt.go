package main

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"

	"ncmdump.dev/cli/algo/ncm"
	"ncmdump.dev/cli/internal/utils"
)

// crypt is the state cached behind one handle: the parsed container plus the
// paths Dump and FixMetadata hand between each other.
type crypt struct {
	path     string
	dumpPath string
	file     *ncm.File
}

var (
	handleMu   sync.Mutex
	handles    = map[int64]*crypt{}
	nextHandle int64 = 1
)

func lookup(handle int64) *crypt {
	handleMu.Lock()
	defer handleMu.Unlock()
	return handles[handle]
}

// createCrypt opens and parses path, returning a fresh handle or 0.
func createCrypt(path string) (handle int64) {
	defer func() {
		if recover() != nil {
			handle = 0
		}
	}()

	in, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer in.Close()

	file, err := ncm.Parse(in)
	if err != nil {
		return 0
	}

	handleMu.Lock()
	defer handleMu.Unlock()
	handle = nextHandle
	nextHandle++
	handles[handle] = &crypt{path: path, file: file}
	return handle
}

// dumpCrypt writes <stem>.<ext> into outputDir, or into the input's parent
// directory when the dir is empty (a null pointer at the C boundary).
// Returns 0 on success, 1 on any error.
func dumpCrypt(handle int64, outputDir string) (ret int) {
	defer func() {
		if recover() != nil {
			ret = 1
		}
	}()

	c := lookup(handle)
	if c == nil {
		return 1
	}

	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(c.path)
	}
	outPath := filepath.Join(dir, utils.Stem(c.path)+"."+c.file.Format.Extension())

	in, err := os.Open(c.path)
	if err != nil {
		return 1
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return 1
	}
	w := bufio.NewWriter(out)
	if err := c.file.DumpAudio(in, w); err != nil {
		_ = out.Close()
		return 1
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return 1
	}
	if err := out.Close(); err != nil {
		return 1
	}

	c.dumpPath = outPath
	return 0
}

// fixMetadata tags the previously dumped file. No-op without metadata or a
// prior successful dump.
func fixMetadata(handle int64) {
	defer func() { _ = recover() }()

	c := lookup(handle)
	if c == nil || c.dumpPath == "" || c.file.Metadata == nil {
		return
	}
	_ = ncm.WriteTags(c.dumpPath, c.file.Metadata, c.file.Cover)
}

// destroyCrypt releases the handle. Unknown and zero handles are ignored.
func destroyCrypt(handle int64) {
	defer func() { _ = recover() }()

	if handle == 0 {
		return
	}
	handleMu.Lock()
	delete(handles, handle)
	handleMu.Unlock()
}
