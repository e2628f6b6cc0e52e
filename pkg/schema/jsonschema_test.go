package schema_test

import (
	"encoding/json"
	"strings"
	"testing"

	v1 "github.com/containerlabs/layerkit/pkg/schema/v1"
	"github.com/invopop/jsonschema"
	. "github.com/onsi/gomega"
)

func TestJsonschema(t *testing.T) {
	RegisterTestingT(t)

	s := jsonschema.Reflect(&v1.BuildConfig{})
	data, err := json.MarshalIndent(s, "", "  ")
	Expect(err).NotTo(HaveOccurred())
	Expect(strings.Contains(string(data), "localDir")).To(BeTrue())
	Expect(strings.Contains(string(data), "containerPath")).To(BeTrue())
	Expect(strings.Contains(string(data), "entrypoint")).To(BeTrue())
}
