//go:build ignore

// Cross-compiles evmoused for every supported linux target:
//
//	go run build.go -platforms linux-amd64,linux-arm64
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

var availableTargets = []target{
	{goos: "linux", goarch: "arm", goarm: "6"},
	{goos: "linux", goarch: "arm", goarm: "7"},
	{goos: "linux", goarch: "arm64"},
	{goos: "linux", goarch: "386"},
	{goos: "linux", goarch: "amd64"},
}

type target struct {
	goos   string
	goarch string
	goarm  string
}

func (t target) String() string {
	if t.goarm != "" {
		return fmt.Sprintf("%s-%s-v%s", t.goos, t.goarch, t.goarm)
	}
	return fmt.Sprintf("%s-%s", t.goos, t.goarch)
}

type result struct {
	target         target
	binary         string
	stdout, stderr string
	err            error
}

var (
	selection = pflag.String("platforms", "all", "comma-separated target platform list")
	project   = pflag.String("project", "./cmd/evmoused/", "main package to build")
	basename  = pflag.String("base", "evmoused", "base filename for output binaries")
	output    = pflag.String("output", "./builds", "output directory")
	race      = pflag.Bool("race", false, "include race detector")
	strip     = pflag.Bool("strip", true, "omit symbol table and debug information")
)

func build(t target) result {
	r := result{target: t, binary: filepath.Join(*output, fmt.Sprintf("%s-%s", *basename, t))}

	params := []string{"build", "-trimpath", "-o", r.binary}
	if *strip {
		params = append(params, "-ldflags", "-s -w")
	}
	if *race {
		params = append(params, "-race")
	}
	params = append(params, *project)

	cmd := exec.Command("go", params...)
	cmd.Env = append(os.Environ(), "GOOS="+t.goos, "GOARCH="+t.goarch)
	if t.goarm != "" {
		cmd.Env = append(cmd.Env, "GOARM="+t.goarm)
	}
	// race detector needs cgo, everything else is built static
	if *race {
		cmd.Env = append(cmd.Env, "CGO_ENABLED=1")
	} else {
		cmd.Env = append(cmd.Env, "CGO_ENABLED=0")
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.err = cmd.Run()
	r.stdout, r.stderr = stdout.String(), stderr.String()
	return r
}

func selectTargets(selection string) ([]target, error) {
	if selection == "all" {
		return availableTargets, nil
	}

	var selected []target
	for _, name := range strings.Split(selection, ",") {
		var found bool
		for _, t := range availableTargets {
			if t.String() == name {
				selected = append(selected, t)
				found = true
				break
			}
		}
		if !found {
			var names []string
			for _, t := range availableTargets {
				names = append(names, t.String())
			}
			return nil, fmt.Errorf("target not found: %s, available: %s", name, strings.Join(names, ","))
		}
	}
	return selected, nil
}

func main() {
	pflag.Parse()
	log.SetFlags(log.Ltime)

	targets, err := selectTargets(*selection)
	if err != nil {
		log.Fatal(err)
	}

	var names []string
	for _, t := range targets {
		names = append(names, t.String())
	}
	log.Printf("selected targets: %s", strings.Join(names, ", "))

	results := make([]result, len(targets))
	wg := sync.WaitGroup{}
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t target) {
			defer wg.Done()
			log.Printf("building %s for %s", *project, t)
			results[i] = build(t)
		}(i, t)
	}
	wg.Wait()

	var failed int
	for _, r := range results {
		if r.err == nil {
			log.Printf("built %s", r.binary)
			continue
		}
		failed++
		fmt.Printf("\n>>> Failed build: target: %s: %v\n", r.target, r.err)
		if r.stdout != "" {
			fmt.Printf("======== STDOUT ========\n%s========================\n", r.stdout)
		}
		if r.stderr != "" {
			fmt.Printf("======== STDERR ========\n%s========================\n", r.stderr)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}
