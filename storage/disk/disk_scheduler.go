package disk

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// DiskReq is a single scheduled disk operation. RespCh receives exactly
// one DiskResp.
type DiskReq struct {
	PageId PageId
	Data   []byte
	Write  bool
	RespCh chan DiskResp
}

// DiskResp is the outcome of a DiskReq.
type DiskResp struct {
	Success bool
	Data    []byte
	Err     error
}

// NewReadRequest builds a read DiskReq with a fresh response channel.
func NewReadRequest(id PageId) DiskReq {
	return DiskReq{PageId: id, RespCh: make(chan DiskResp, 1)}
}

// NewWriteRequest builds a write DiskReq with a fresh response channel.
func NewWriteRequest(id PageId, data []byte) DiskReq {
	return DiskReq{PageId: id, Data: data, Write: true, RespCh: make(chan DiskResp, 1)}
}

// DiskScheduler fans disk requests out by PageId so that operations
// against distinct pages proceed concurrently instead of serializing
// through a single I/O goroutine, while operations against the same page
// are still processed in submission order. It does not relax the
// blocking contract of DiskManager: Schedule's caller still blocks on the
// returned channel until the request completes.
type DiskScheduler struct {
	manager *DiskManager

	reqCh chan DiskReq
	// queues maps a PageId currently being drained to the channel its
	// worker goroutine is reading from.
	queues *xsync.MapOf[PageId, chan DiskReq]
}

// NewDiskScheduler starts a DiskScheduler backed by manager.
func NewDiskScheduler(manager *DiskManager) *DiskScheduler {
	ds := &DiskScheduler{
		manager: manager,
		reqCh:   make(chan DiskReq, 256),
		queues:  xsync.NewMapOf[PageId, chan DiskReq](),
	}

	go ds.dispatch()
	return ds
}

// Schedule enqueues req and returns its response channel. The caller
// should receive exactly once from the returned channel (also available
// as req.RespCh).
func (ds *DiskScheduler) Schedule(req DiskReq) <-chan DiskResp {
	ds.reqCh <- req
	return req.RespCh
}

func (ds *DiskScheduler) dispatch() {
	for req := range ds.reqCh {
		queue, loaded := ds.queues.LoadOrStore(req.PageId, make(chan DiskReq, 16))
		queue <- req

		if !loaded {
			go ds.worker(req.PageId, queue)
		}
	}
}

func (ds *DiskScheduler) worker(id PageId, queue chan DiskReq) {
	for {
		select {
		case req := <-queue:
			ds.execute(req)
		default:
			// Nothing left for this page right now; give up ownership so
			// a future request re-triggers dispatch's LoadOrStore path.
			ds.queues.Delete(id)
			return
		}
	}
}

func (ds *DiskScheduler) execute(req DiskReq) {
	if req.Write {
		err := ds.manager.WritePage(req.PageId, req.Data)
		req.RespCh <- DiskResp{Success: err == nil, Err: err}
		return
	}

	buf := make([]byte, PAGE_SIZE)
	err := ds.manager.ReadPage(req.PageId, buf)
	req.RespCh <- DiskResp{Success: err == nil, Data: buf, Err: err}
}
