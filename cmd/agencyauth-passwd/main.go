// Command agencyauth-passwd produces and inspects stored password hashes.
//
//	agencyauth-passwd hash [--memory KiB] [--time N] [--parallelism N] < password
//	agencyauth-passwd inspect '<encoded hash>'
//	agencyauth-passwd verify '<encoded hash>' < password
//	agencyauth-passwd legacy [--iterations N] < password
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	agencyAuth "github.com/MrEthical07/agencyAuth"
	"github.com/MrEthical07/agencyAuth/password"
)

const usage = "usage: agencyauth-passwd hash|inspect|verify|legacy [flags] [hash]"

func main() {
	code, err := run(os.Args[1:], os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

func run(args []string, stdin io.Reader, stdout io.Writer) (int, error) {
	if len(args) == 0 {
		return 2, errors.New(usage)
	}

	defaults := agencyAuth.DevelopmentConfig().Password
	flags := pflag.NewFlagSet("agencyauth-passwd", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	memory := flags.Uint32("memory", defaults.Memory, "argon2id memory in KiB")
	timeCost := flags.Uint32("time", defaults.Time, "argon2id iterations")
	parallelism := flags.Uint8("parallelism", defaults.Parallelism, "argon2id lanes")
	iterations := flags.Int("iterations", 260000, "pbkdf2 iterations for legacy hashes")
	if err := flags.Parse(args[1:]); err != nil {
		return 2, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:           *memory,
		Time:             *timeCost,
		Parallelism:      *parallelism,
		SaltLength:       defaults.SaltLength,
		KeyLength:        defaults.KeyLength,
		MaxPasswordBytes: defaults.MaxPasswordBytes,
	})
	if err != nil {
		return 2, err
	}

	switch args[0] {
	case "hash":
		secret, err := readSecret(stdin)
		if err != nil {
			return 1, err
		}
		encoded, err := hasher.Hash(secret)
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(stdout, encoded)
		return 0, nil

	case "legacy":
		secret, err := readSecret(stdin)
		if err != nil {
			return 1, err
		}
		encoded, err := password.HashLegacy(secret, *iterations)
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(stdout, encoded)
		return 0, nil

	case "inspect":
		if flags.NArg() != 1 {
			return 2, errors.New(usage)
		}
		encoded := flags.Arg(0)
		fmt.Fprintf(stdout, "scheme: %s\n", hasher.Scheme(encoded))
		fmt.Fprintf(stdout, "needs_rehash: %t\n", hasher.NeedsRehash(encoded))
		return 0, nil

	case "verify":
		if flags.NArg() != 1 {
			return 2, errors.New(usage)
		}
		secret, err := readSecret(stdin)
		if err != nil {
			return 1, err
		}
		ok, err := hasher.VerifyErr(secret, flags.Arg(0))
		if err != nil {
			return 1, err
		}
		if !ok {
			fmt.Fprintln(stdout, "mismatch")
			return 1, nil
		}
		fmt.Fprintln(stdout, "ok")
		return 0, nil

	default:
		return 2, fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

// readSecret reads the first line of r without its line terminator.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}
