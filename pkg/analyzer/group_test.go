package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

func componentOf(t *testing.T, components []*types.ComponentInfo, img *types.ImageReference) string {
	t.Helper()
	for _, c := range components {
		for _, member := range c.Images {
			if member == img {
				return c.Category
			}
		}
	}
	t.Fatalf("%s is not in any component", img.FullReference())
	return ""
}

func TestGroupGranular(t *testing.T) {
	tests := []struct {
		image string
		want  string
	}{
		{"registry.redhat.io/rhoai/odh-operator@" + digestOf("a"), "platform_core"},
		{"registry.redhat.io/rhoai/odh-rhel8-operator@" + digestOf("a"), "platform_core"},
		{"registry.redhat.io/rhoai/odh-dashboard-rhel8@" + digestOf("a"), "platform_core"},
		{"registry.redhat.io/rhoai/odh-notebook-controller-rhel8@" + digestOf("a"), "notebook_controllers"},
		{"registry.redhat.io/rhoai/odh-kf-notebook-controller-rhel8@" + digestOf("a"), "notebook_controllers"},
		{"quay.io/modh/pytorch-notebook-server:1", "pytorch_notebooks"},
		{"quay.io/modh/odh-workbench-jupyter-pytorch-cuda-py311-ubi9:2025a", "pytorch_notebooks"},
		{"quay.io/modh/odh-tensorflow-notebook:1", "tensorflow_notebooks"},
		{"quay.io/modh/cuda-notebooks:2024a", "cuda_notebooks"},
		{"quay.io/modh/odh-minimal-notebook-container:v2", "minimal_notebooks"},
		{"quay.io/modh/codeserver:1", "other"},
		{"quay.io/modh/odh-workbench-codeserver-datascience-cpu-py311-ubi9:1", "datascience_notebooks"},
		{"quay.io/modh/code-server-ubi9:1", "code_server"},
		{"quay.io/modh/rstudio-rhel9:1", "rstudio"},
		{"quay.io/community/jupyter-base:1", "jupyter_notebooks"},
		{"registry.redhat.io/rhoai/odh-model-controller-rhel8@" + digestOf("a"), "model_serving_controllers"},
		{"registry.redhat.io/rhoai/odh-modelmesh-runtime-adapter-rhel8@" + digestOf("a"), "modelmesh"},
		{"registry.redhat.io/rhoai/odh-kserve-agent-rhel8@" + digestOf("a"), "kserve"},
		{"registry.redhat.io/rhoai/odh-vllm-cuda-rhel9@" + digestOf("a"), "serving_runtimes"},
		{"registry.redhat.io/rhoai/odh-ml-pipelines-api-server-v2-rhel8@" + digestOf("a"), "data_science_pipelines"},
		{"registry.redhat.io/rhoai/odh-kuberay-operator-controller-rhel9@" + digestOf("a"), "distributed_workloads"},
		{"quay.io/project-codeflare/ray:2.35.0-py311-cu121", "distributed_workloads"},
		{"quay.io/modh/gray-scale:1", "other"},
		{"registry.redhat.io/rhoai/odh-trustyai-service-rhel8@" + digestOf("a"), "trustyai"},
		{"registry.redhat.io/rhoai/odh-model-registry-rhel8@" + digestOf("a"), "model_registry"},
		{"quay.io/modh/runtime-pytorch-ubi9-python-3.11:2024b", "pytorch_runtimes"},
		{"quay.io/modh/runtime-tensorflow:2024b", "tensorflow_runtimes"},
		{"quay.io/modh/cuda-base:12.1", "cuda_runtimes"},
		{"quay.io/modh/fms-hf-tuning:release", "training_images"},
		{"quay.io/modh/openvino-toolkit:1", "specialized_ai"},
		{"registry.redhat.io/openshift4/ose-oauth-proxy@" + digestOf("a"), "auth_proxies"},
		{"quay.io/community/my-notebook:latest", "other"},
	}

	for _, tc := range tests {
		t.Run(tc.image, func(t *testing.T) {
			img := parse(tc.image)
			components := Group([]*types.ImageReference{img}, GranularRules)
			require.Len(t, components, 1)
			assert.Equal(t, tc.want, components[0].Category)
		})
	}
}

func TestGroupPrecedence(t *testing.T) {
	notebook := parse("quay.io/modh/pytorch-notebook-server:1")
	runtime := parse("quay.io/modh/runtime-pytorch:1")

	components := Group([]*types.ImageReference{runtime, notebook}, GranularRules)

	assert.Equal(t, "pytorch_notebooks", componentOf(t, components, notebook))
	assert.Equal(t, "pytorch_runtimes", componentOf(t, components, runtime))

	// Without the notebook rule the exclusion still keeps the image out of the runtime bucket.
	var runtimeOnly []ComponentRule
	for _, r := range GranularRules {
		if r.Key == "pytorch_runtimes" {
			runtimeOnly = append(runtimeOnly, r)
		}
	}
	components = Group([]*types.ImageReference{notebook}, runtimeOnly)
	assert.Equal(t, OtherComponent, componentOf(t, components, notebook))
}

func TestGroupExclusivity(t *testing.T) {
	images := parseAll(
		"registry.redhat.io/rhoai/odh-operator@"+digestOf("1"),
		"registry.redhat.io/rhoai/odh-dashboard-rhel8@"+digestOf("2"),
		"quay.io/modh/pytorch-notebook-server:1",
		"quay.io/modh/runtime-pytorch:1",
		"quay.io/community/my-notebook:latest",
		"docker.io/library/busybox",
		"quay.io/community/my-notebook:latest",
	)

	for _, rules := range [][]ComponentRule{GranularRules, LegacyRules, nil} {
		components := Group(images, rules)

		seen := make(map[*types.ImageReference]int)
		total := 0
		for _, c := range components {
			assert.NotEmpty(t, c.Images, "empty components are not emitted")
			for _, img := range c.Images {
				seen[img]++
				total++
			}
		}
		assert.Equal(t, len(images), total)
		for _, img := range images {
			assert.Equal(t, 1, seen[img], img.FullReference())
		}
	}
}

func TestGroupOrderAndMetadata(t *testing.T) {
	images := parseAll(
		"quay.io/community/my-notebook:latest",
		"registry.redhat.io/rhoai/odh-operator@"+digestOf("1"),
		"docker.io/library/busybox",
		"registry.redhat.io/rhoai/odh-dashboard-rhel8@"+digestOf("2"),
	)

	components := Group(images, GranularRules)
	require.Len(t, components, 2)

	assert.Equal(t, OtherComponent, components[0].Category)
	assert.Equal(t, "Other", components[0].Name)
	assert.Equal(t, "Other components", components[0].Description)
	assert.Equal(t, []*types.ImageReference{images[0], images[2]}, components[0].Images)

	assert.Equal(t, "platform_core", components[1].Category)
	assert.Equal(t, "Platform Core", components[1].Name)
	assert.Equal(t, []*types.ImageReference{images[1], images[3]}, components[1].Images)
}

func TestGroupLegacyRules(t *testing.T) {
	img := parse("quay.io/community/my-notebook:latest")
	components := Group([]*types.ImageReference{img}, LegacyRules)
	require.Len(t, components, 1)
	assert.Equal(t, "development_environments", components[0].Category)
	assert.Equal(t, "Development Environments", components[0].Name)
}

func TestGroupEmpty(t *testing.T) {
	assert.Empty(t, Group(nil, GranularRules))
}

func TestComponentDisplay(t *testing.T) {
	name, description := ComponentDisplay("model_serving")
	assert.Equal(t, "Model Serving", name)
	assert.Equal(t, "ML model deployment and inference", description)

	name, description = ComponentDisplay("custom_inference_stack")
	assert.Equal(t, "Custom Inference Stack", name)
	assert.Equal(t, "Unknown component type", description)
}

func TestComponentRuleMatches(t *testing.T) {
	r := rule("pytorch_runtimes", `pytorch`).excluding(`pytorch.*notebook`)
	assert.True(t, r.Matches("runtime-pytorch"))
	assert.False(t, r.Matches("pytorch-notebook"))
	assert.True(t, r.Matches("pytorch-notebook", "runtime-pytorch"), "any candidate may match")
}
