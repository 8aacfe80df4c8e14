package internalcalls

import (
	"bufio"
	"fmt"
	"os"

	"github.com/clrlite/clrlite/metadata"
	"github.com/clrlite/clrlite/value"
)

var stdinReader = bufio.NewReader(os.Stdin)

func registerConsole(r *Registry) {
	r.Register("WriteLine", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		fmt.Println(argOrEmpty(params, 0))
		return value.NoneValue, nil
	})
	r.Register("Write", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		fmt.Print(argOrEmpty(params, 0))
		return value.NoneValue, nil
	})
	r.Register("ReadLine", func(params []value.Value, m *metadata.Method) (value.Value, error) {
		line, err := stdinReader.ReadString('\n')
		if err != nil && line == "" {
			return value.NullValue, nil
		}
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}
		return value.NewString(line), nil
	})
}

func argOrEmpty(params []value.Value, i int) string {
	if i >= len(params) {
		return ""
	}
	return params[i].String()
}
