package wipe

import (
	"sync"
)

// blockPool хранит блоки паттернов размера BlockSize
var blockPool = sync.Pool{
	New: func() any {
		return make([]byte, BlockSize)
	},
}

// getBlock берет обнуленный блок из пула
func getBlock() []byte {
	return blockPool.Get().([]byte)
}

// putBlock возвращает блок в пул. Чужие размеры отбрасываются,
// содержимое паттерна не должно пережить возврат.
func putBlock(buf []byte) {
	if cap(buf) != BlockSize {
		return
	}
	buf = buf[:BlockSize]
	clear(buf)
	blockPool.Put(buf)
}

// fillBlock заполняет блок одним байтом
func fillBlock(buf []byte, pattern byte) {
	for i := range buf {
		buf[i] = pattern
	}
}
