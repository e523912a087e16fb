package partition

import (
	"container/list"
	"fmt"
	"os"
	"sync"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"go.uber.org/multierr"
)

// appendFile is a write-only file whose descriptor can be released and
// transparently reacquired in append mode. The compressing writer above
// it hands down whole compressed blocks, so a write landing after a
// suspend continues the stream exactly where it left off.
type appendFile struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func newAppendFile(path string) (*appendFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &appendFile{path: path, f: f}, nil
}

func (a *appendFile) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		f, err := os.OpenFile(a.path, os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		a.f = f
	}
	return a.f.Write(p)
}

// suspend releases the descriptor without ending the logical stream.
func (a *appendFile) suspend() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	return err
}

func (a *appendFile) resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f != nil {
		return nil
	}
	f, err := os.OpenFile(a.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	a.f = f
	return nil
}

type regionWriter struct {
	name string
	bw   *bam.Writer
	file *appendFile
	elem *list.Element
}

// writerPool keeps one logical writer per region for the whole pass
// while bounding how many file descriptors are held at once. Eviction
// is least-recently-used and releases only the descriptor; the
// evicted region's writer stays valid and reopens its file in append
// mode on the next write, so no region ever loses earlier reads.
type writerPool struct {
	capacity int
	header   *sam.Header
	resident *list.List
	writers  map[string]*regionWriter
}

func newWriterPool(capacity int, header *sam.Header) *writerPool {
	return &writerPool{
		capacity: capacity,
		header:   header,
		resident: list.New(),
		writers:  make(map[string]*regionWriter),
	}
}

// writer returns the region's writer, creating it on first use. The
// region is made resident, evicting the least-recently-used resident
// descriptor when the pool is full.
func (p *writerPool) writer(region, path string) (*bam.Writer, error) {
	if rw, ok := p.writers[region]; ok {
		if err := p.touch(rw); err != nil {
			return nil, err
		}
		return rw.bw, nil
	}

	if err := p.makeRoom(); err != nil {
		return nil, err
	}
	file, err := newAppendFile(path)
	if err != nil {
		return nil, err
	}
	bw, err := bam.NewWriter(file, p.header, 1)
	if err != nil {
		file.suspend()
		return nil, fmt.Errorf("open writer for %s: %w", region, err)
	}
	rw := &regionWriter{name: region, bw: bw, file: file}
	rw.elem = p.resident.PushFront(rw)
	p.writers[region] = rw
	return bw, nil
}

func (p *writerPool) touch(rw *regionWriter) error {
	if rw.elem != nil {
		p.resident.MoveToFront(rw.elem)
		return nil
	}
	if err := p.makeRoom(); err != nil {
		return err
	}
	if err := rw.file.resume(); err != nil {
		return fmt.Errorf("reopen %s: %w", rw.file.path, err)
	}
	rw.elem = p.resident.PushFront(rw)
	return nil
}

func (p *writerPool) makeRoom() error {
	for p.resident.Len() >= p.capacity {
		back := p.resident.Back()
		rw := back.Value.(*regionWriter)
		p.resident.Remove(back)
		rw.elem = nil
		if err := rw.file.suspend(); err != nil {
			return fmt.Errorf("release %s: %w", rw.file.path, err)
		}
	}
	return nil
}

// closeAll flushes and closes every writer in the pool, continuing
// past individual failures and reporting them together.
func (p *writerPool) closeAll() error {
	var err error
	for _, rw := range p.writers {
		if cerr := rw.bw.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close writer for %s: %w", rw.name, cerr))
		}
		if cerr := rw.file.suspend(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", rw.file.path, cerr))
		}
	}
	return err
}
