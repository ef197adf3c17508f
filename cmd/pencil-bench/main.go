// pencil-bench runs an in-process SPMD world through the classic
// x->y->z->y->x pencil transposition cycle and reports throughput. It is a
// micro-benchmark for the redistribution engine, not a correctness tool.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gomlx/pencils"
	"github.com/gomlx/pencils/comm"
	"github.com/gomlx/pencils/internal/utils"
	"github.com/gomlx/pencils/types/permutations"
	"github.com/janpfeifer/must"
	"github.com/spf13/cobra"
)

var (
	flagGlobal []int
	flagProcs  []int
	flagMethod string
	flagRepeat int
)

func main() {
	cmd := &cobra.Command{
		Use:   "pencil-bench",
		Short: "Benchmark pencil transpositions over an in-process SPMD world",
		RunE: func(cmd *cobra.Command, args []string) error {
			return bench()
		},
	}
	cmd.Flags().IntSliceVar(&flagGlobal, "global", []int{64, 64, 64}, "global array shape (3 axes)")
	cmd.Flags().IntSliceVar(&flagProcs, "procs", []int{2, 2}, "process grid shape (2 axes)")
	cmd.Flags().StringVar(&flagMethod, "method", pencils.ExchangePairwise.String(),
		"exchange method (ExchangePairwise or ExchangeAlltoallv)")
	cmd.Flags().IntVar(&flagRepeat, "repeat", 10, "number of full transposition cycles")
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bench() error {
	if len(flagGlobal) != 3 || len(flagProcs) != 2 {
		return fmt.Errorf("pencil-bench needs a 3-axis global shape and a 2-axis process grid")
	}
	method := must.M1(pencils.ExchangeMethodString(flagMethod))
	opts := &pencils.TransposeOptions{Method: method}
	ranks := flagProcs[0] * flagProcs[1]

	return comm.Run(ranks, func(c *comm.Comm) error {
		topo := must.M1(comm.NewCartesian(c, flagProcs))
		permY := must.M1(permutations.New(1, 0, 2))
		permZ := must.M1(permutations.New(2, 1, 0))
		xP := must.M1(pencils.NewPencil(pencils.StorageHost, flagGlobal, []int{1, 2}, topo))
		yP := must.M1(xP.Derive().WithDecompDims(0, 2).WithPermutation(permY).Build())
		zP := must.M1(yP.Derive().WithDecompDims(0, 1).WithPermutation(permZ).Build())

		ux := must.M1(pencils.NewArray[float64](xP))
		uy := must.M1(pencils.NewArray[float64](yP))
		uz := must.M1(pencils.NewArray[float64](zP))
		ux.FillGlobal(func(global, _ []int) float64 {
			return float64(global[0]*1_000_000 + global[1]*1_000 + global[2])
		})

		// Warm up once so the scratch buffers reach their final size.
		must.M(pencils.Transpose(uy, ux, opts))
		must.M(pencils.Transpose(uz, uy, opts))
		must.M(pencils.Transpose(uy, uz, opts))
		must.M(pencils.Transpose(ux, uy, opts))

		must.M(c.Barrier())
		start := time.Now()
		for i := 0; i < flagRepeat; i++ {
			must.M(pencils.Transpose(uy, ux, opts))
			must.M(pencils.Transpose(uz, uy, opts))
			must.M(pencils.Transpose(uy, uz, opts))
			must.M(pencils.Transpose(ux, uy, opts))
		}
		must.M(c.Barrier())
		elapsed := time.Since(start)

		if c.Rank() == 0 {
			elems := utils.Prod(flagGlobal)
			bytesMoved := int64(elems) * 8 * 4 * int64(flagRepeat)
			fmt.Printf("%d ranks %v, global %v, %s: %d cycles in %v (%.1f MB/s aggregate)\n",
				ranks, flagProcs, flagGlobal, method, flagRepeat, elapsed,
				float64(bytesMoved)/elapsed.Seconds()/1e6)
		}
		return nil
	})
}
