// Package partition computes the TaskNodes for a ready leaf module.
package partition

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/wokengine/wok/node"
	"github.com/wokengine/wok/wconfig"
)

// Partition computes psizes/mwsize and emits the leaf's TaskNodes,
// binding each task's per-port slice/partition handles. It does not
// mutate leaf.State; the caller (the scheduler loop) does that based on
// whether any tasks were produced.
func Partition(ctx context.Context, log zerolog.Logger, leaf *node.LeafModuleNode, instanceMaxpar int, defaultWsize int) ([]*node.TaskNode, error) {
	inPorts := leaf.InPorts()
	outPorts := leaf.OutPorts()

	if len(inPorts) == 0 {
		return singleTask(ctx, leaf, outPorts)
	}

	psizes := make([]int, len(inPorts))
	for i, p := range inPorts {
		n, err := p.Data.Size(ctx)
		if err != nil {
			return nil, fmt.Errorf("partition: %s: size of %s: %w", leaf.ID(), p.Name, err)
		}
		psizes[i] = n
	}

	equal := true
	for _, n := range psizes {
		if n != psizes[0] {
			equal = false
			break
		}
	}
	if !equal {
		log.Warn().Str("module", leaf.ID()).Ints("sizes", psizes).Msg("unequal input port sizes; running as a single task")
		return singleTask(ctx, leaf, outPorts)
	}

	psize := psizes[0]

	mwsize := math.MaxInt
	for _, p := range inPorts {
		w := wconfig.EffectiveWsize(p.Wsize, leaf.Wsize(), defaultWsize)
		if w < mwsize {
			mwsize = w
		}
	}
	if mwsize == math.MaxInt {
		mwsize = defaultWsize
	}

	if mwsize == 0 {
		return singleTask(ctx, leaf, outPorts)
	}

	numPartitions := ceilDiv(psize, mwsize)
	maxpar := wconfig.EffectiveMaxpar(instanceMaxpar, leaf.Maxpar())
	if maxpar > 0 && numPartitions > maxpar {
		mwsize = ceilDiv(psize, maxpar)
		numPartitions = ceilDiv(psize, mwsize)
	}

	tasks := make([]*node.TaskNode, 0, numPartitions)
	for i := 0; i < numPartitions; i++ {
		start := i * mwsize
		end := start + mwsize
		if end > psize {
			end = psize
		}
		size := end - start

		t := &node.TaskNode{
			Index: i,
			ID:    node.TaskID(leaf.ID(), i),
			State: node.Ready,
			Leaf:  leaf,
		}
		for _, p := range inPorts {
			slice, err := p.Data.GetSlice(ctx, start, size)
			if err != nil {
				return nil, fmt.Errorf("partition: %s: slice in_port %s: %w", leaf.ID(), p.Name, err)
			}
			t.InPortData = append(t.InPortData, slice)
		}
		for _, p := range outPorts {
			part, err := p.Data.GetPartition(ctx)
			if err != nil {
				return nil, fmt.Errorf("partition: %s: partition out_port %s: %w", leaf.ID(), p.Name, err)
			}
			t.OutPortData = append(t.OutPortData, part)
		}
		tasks = append(tasks, t)
	}

	return tasks, nil
}

// singleTask covers cases 1-3: no input ports, unequal input sizes,
// and the degenerate mwsize=0 fallback. Every output port gets one fresh
// partition; input ports (if any) are bound to their whole range.
func singleTask(ctx context.Context, leaf *node.LeafModuleNode, outPorts []*node.PortNode) ([]*node.TaskNode, error) {
	t := &node.TaskNode{
		Index: 0,
		ID:    node.TaskID(leaf.ID(), 0),
		State: node.Ready,
		Leaf:  leaf,
	}
	for _, p := range leaf.InPorts() {
		n, err := p.Data.Size(ctx)
		if err != nil {
			return nil, fmt.Errorf("partition: %s: size of %s: %w", leaf.ID(), p.Name, err)
		}
		slice, err := p.Data.GetSlice(ctx, 0, n)
		if err != nil {
			return nil, fmt.Errorf("partition: %s: slice in_port %s: %w", leaf.ID(), p.Name, err)
		}
		t.InPortData = append(t.InPortData, slice)
	}
	for _, p := range outPorts {
		part, err := p.Data.GetPartition(ctx)
		if err != nil {
			return nil, fmt.Errorf("partition: %s: partition out_port %s: %w", leaf.ID(), p.Name, err)
		}
		t.OutPortData = append(t.OutPortData, part)
	}
	return []*node.TaskNode{t}, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
