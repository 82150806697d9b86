// Command ewfdemo is a small CLI exercising package ewf and workflow:
// info (print media/header values), verify (read-through digest check),
// and extract (dump a sector range to a file). Mirrors the external-CLI
// contract of spec.md §6 (command names, exit codes) without pulling any
// of that surface into the core packages themselves.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	ewf "github.com/sigsegv-forensics/ewfkit"
	"github.com/sigsegv-forensics/ewfkit/digest"
	"github.com/sigsegv-forensics/ewfkit/workflow"
)

const (
	exitSuccess = 0
	exitUsage   = 1
	exitIO      = 2
	exitIntegrity = 3
)

func main() {
	var (
		path        string
		action      string
		startSector uint64
		count       uint64
		outputPath  string
	)

	flag.StringVar(&path, "file", "", "first segment file of the image (required)")
	flag.StringVar(&action, "action", "info", "info | verify | extract")
	flag.Uint64Var(&startSector, "start", 0, "starting sector (extract only)")
	flag.Uint64Var(&count, "count", 1, "sector count (extract only)")
	flag.StringVar(&outputPath, "output", "", "output file path (extract only)")
	flag.Parse()

	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: ewfdemo -file=<segment file> [-action=info|verify|extract] [-start=N] [-count=N] [-output=path]")
		os.Exit(exitUsage)
	}

	h, err := ewf.Open([]string{path}, ewf.ModeRead)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(exitIO)
	}
	defer h.Close()

	switch action {
	case "info":
		printInfo(h)
	case "verify":
		os.Exit(runVerify(h))
	case "extract":
		os.Exit(runExtract(h, startSector, count, outputPath))
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", action)
		os.Exit(exitUsage)
	}
}

func printInfo(h *ewf.Handle) {
	mv := h.GetMediaValues()
	fmt.Printf("media size:        %d bytes\n", h.GetMediaSize())
	fmt.Printf("bytes per sector:  %d\n", mv.BytesPerSector)
	fmt.Printf("sectors per chunk: %d\n", mv.SectorsPerChunk)
	fmt.Printf("chunk count:       %d\n", mv.NumberOfChunks)

	fmt.Println("\ncase data:")
	for _, p := range h.HeaderValues().Pairs() {
		fmt.Printf("  %s = %s\n", p.Key, p.Value)
	}

	fmt.Println("\nstored digests:")
	for _, p := range h.HashValues().Pairs() {
		fmt.Printf("  %s = %s\n", p.Key, p.Value)
	}
}

func runVerify(h *ewf.Handle) int {
	v := &workflow.Verify{}
	report, err := v.Run(context.Background(), h, workflow.VerifyOptions{
		DigestAlgorithms: []digest.Algorithm{digest.MD5, digest.SHA1},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		return exitIO
	}

	if len(report.CorruptedChunks) > 0 {
		fmt.Printf("checksum errors in %d chunk(s): %v\n", len(report.CorruptedChunks), report.CorruptedChunks)
	}
	for alg, stored := range report.Stored {
		computed := fmt.Sprintf("%x", report.Computed[digest.Algorithm(strings.ToLower(alg))])
		fmt.Printf("%s: stored=%s computed=%s\n", alg, stored, computed)
	}
	if !report.DigestsMatch {
		fmt.Println("verify: FAILED")
		return exitIntegrity
	}
	fmt.Println("verify: OK")
	return exitSuccess
}

func runExtract(h *ewf.Handle, startSector, count uint64, outputPath string) int {
	if outputPath == "" {
		fmt.Fprintln(os.Stderr, "extract requires -output")
		return exitUsage
	}
	mv := h.GetMediaValues()
	offset := startSector * uint64(mv.BytesPerSector)
	length := count * uint64(mv.BytesPerSector)

	if _, err := h.Seek(int64(offset), 0); err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		return exitIO
	}

	out, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		return exitIO
	}
	defer out.Close()

	buf := make([]byte, 64*1024)
	var remaining = length
	for remaining > 0 {
		n := uint64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, err := h.Read(buf[:n])
		if read > 0 {
			if _, werr := out.Write(buf[:read]); werr != nil {
				fmt.Fprintf(os.Stderr, "extract: write: %v\n", werr)
				return exitIO
			}
			remaining -= uint64(read)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "extract: read: %v\n", err)
			return exitIO
		}
	}
	return exitSuccess
}
