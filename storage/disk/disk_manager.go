package disk

import (
	"io"
	"os"
	"sync"

	"github.com/petrel-db/petrel/util"
	"github.com/petrel-db/petrel/util/logging"
)

// DiskManager performs blocking, page-sized random I/O against one file
// per table. It assumes the buffer pool serializes concurrent access to
// any single page; DiskManager itself only serializes file-handle
// creation.
type DiskManager struct {
	paths Paths

	mu    sync.Mutex
	files map[TableId]*os.File
}

// NewDiskManager constructs a DiskManager rooted at paths. Path creation
// failure at first use is fatal to engine start, per spec §4.1.
func NewDiskManager(paths Paths) *DiskManager {
	return &DiskManager{
		paths: paths,
		files: make(map[TableId]*os.File),
	}
}

// Close closes every file handle this manager has opened.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var firstErr error
	for id, f := range dm.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(dm.files, id)
	}
	return firstErr
}

func (dm *DiskManager) fileFor(table TableId) (*os.File, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if f, ok := dm.files[table]; ok {
		return f, nil
	}

	path, err := dm.paths.TablePath(table)
	if err != nil {
		return nil, util.Wrap(util.KindIoFault, "opening table file", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		logging.Error("opening table file failed", "table_id", table, "path", path, "err", err)
		return nil, util.Wrap(util.KindIoFault, "opening table file", err)
	}

	dm.files[table] = f
	return f, nil
}

// ReadPage reads exactly PAGE_SIZE bytes for id into buf. A page that has
// never been written reads back as zeros.
func (dm *DiskManager) ReadPage(id PageId, buf []byte) error {
	if !id.IsValid() {
		return util.New(util.KindInvalidPageId, "ReadPage called with invalid PageId")
	}
	if len(buf) != PAGE_SIZE {
		return util.Newf(util.KindIoFault, "ReadPage buffer must be %d bytes, got %d", PAGE_SIZE, len(buf))
	}

	f, err := dm.fileFor(id.TableId)
	if err != nil {
		return err
	}

	n, err := f.ReadAt(buf, id.Offset())
	switch {
	case err == nil:
		return nil
	case err == io.EOF:
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		return nil
	default:
		logging.Error("reading page failed", "page_id", id, "err", err)
		return util.Wrap(util.KindIoFault, "reading page", err)
	}
}

// WritePage writes exactly PAGE_SIZE bytes from buf for id, extending the
// file as needed.
func (dm *DiskManager) WritePage(id PageId, buf []byte) error {
	if !id.IsValid() {
		return util.New(util.KindInvalidPageId, "WritePage called with invalid PageId")
	}
	if len(buf) != PAGE_SIZE {
		return util.Newf(util.KindIoFault, "WritePage buffer must be %d bytes, got %d", PAGE_SIZE, len(buf))
	}

	f, err := dm.fileFor(id.TableId)
	if err != nil {
		return err
	}

	if _, err := f.WriteAt(buf, id.Offset()); err != nil {
		logging.Error("writing page failed", "page_id", id, "err", err)
		return util.Wrap(util.KindIoFault, "writing page", err)
	}

	return nil
}
