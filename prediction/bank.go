package prediction

import "sync"

// 简单的内存账本，测试和单机部署用。生产环境换成宿主账本的出金通道
func NewMemBank() *MemBank {
	return &MemBank{accounts: map[string]uint64{}}
}

type MemBank struct {
	mu       sync.Mutex
	accounts map[string]uint64
}

func (b *MemBank) Transfer(to string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[to] += amount
	return nil
}

func (b *MemBank) BalanceOf(addr string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[addr]
}
