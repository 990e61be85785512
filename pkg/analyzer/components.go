package analyzer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OtherComponent collects images no rule matches.
const OtherComponent = "other"

// ComponentRule assigns images to the component Key. An image matches when any Include
// pattern matches and no Exclude pattern does.
type ComponentRule struct {
	Key     string
	Include []*regexp.Regexp
	Exclude []*regexp.Regexp
}

func rule(key string, include ...string) ComponentRule {
	return ComponentRule{Key: key, Include: compileAll(include...)}
}

func (r ComponentRule) excluding(patterns ...string) ComponentRule {
	r.Exclude = append(r.Exclude, compileAll(patterns...)...)
	return r
}

// Matches tests the rule against each candidate string (already lower-cased).
func (r ComponentRule) Matches(candidates ...string) bool {
	for _, s := range candidates {
		if matchesAny(r.Include, s) && !matchesAny(r.Exclude, s) {
			return true
		}
	}
	return false
}

// GranularRules is the default rule table. Order is significant: narrow workload rules
// come before the broad runtime and infrastructure rules that would otherwise swallow them.
var GranularRules = []ComponentRule{
	rule("platform_core", `odh-(rhel\d+-)?operator`, `rhods-operator`, `odh-dashboard`, `odh-deployer`),
	rule("notebook_controllers", `notebook-controller`),

	rule("pytorch_notebooks", `pytorch.*(notebook|workbench)`, `(notebook|workbench).*pytorch`),
	rule("tensorflow_notebooks", `tensorflow.*(notebook|workbench)`, `(notebook|workbench).*tensorflow`),
	rule("cuda_notebooks", `cuda.*(notebook|workbench)`, `(notebook|workbench).*cuda`),
	rule("rocm_notebooks", `rocm.*(notebook|workbench)`, `(notebook|workbench).*rocm`),
	rule("trustyai_notebooks", `trustyai.*(notebook|workbench)`, `(notebook|workbench).*trustyai`),
	rule("datascience_notebooks", `datascience.*(notebook|workbench)`, `(notebook|workbench).*datascience`),
	rule("minimal_notebooks", `minimal.*(notebook|workbench)`, `(notebook|workbench).*minimal`),
	rule("code_server", `code-server`),
	rule("rstudio", `rstudio`),
	rule("jupyter_notebooks", `jupyter`),

	rule("model_serving_controllers", `odh-model-controller`, `(kserve|modelmesh)-controller`, `model-controller`),
	rule("modelmesh", `modelmesh`),
	rule("kserve", `kserve`),
	rule("serving_runtimes", `vllm`, `caikit`, `tgis`, `text-generation-inference`, `triton`, `ovms`, `model-server`),
	rule("data_science_pipelines", `ml-pipelines`, `data-science-pipelines`, `ds-pipelines`, `argo`, `pipelines`),
	rule("distributed_workloads", `kuberay`, `codeflare`, `training-operator`, `kueue`, `mcad`, `instascale`, `(^|[/-])ray([-/@:]|$)`),
	rule("trustyai", `trustyai`, `guardrails`),
	rule("model_registry", `model-registry`),
	rule("feature_store", `feast`),

	rule("pytorch_runtimes", `pytorch`).excluding(`pytorch.*(notebook|workbench)`),
	rule("tensorflow_runtimes", `tensorflow`).excluding(`tensorflow.*(notebook|workbench)`),
	rule("cuda_runtimes", `cuda`),
	rule("rocm_runtimes", `rocm`),
	rule("training_images", `training`, `fms-hf-tuning`),
	rule("specialized_ai", `openvino`, `habana`, `gaudi`),
	rule("auth_proxies", `oauth-proxy`, `kube-rbac-proxy`),
	rule("monitoring", `prometheus`, `grafana`, `alertmanager`, `node-exporter`),
}

// LegacyRules is the earlier coarse table, kept for --no-granular. It uses plain
// substring markers.
var LegacyRules = []ComponentRule{
	literalRule("platform_core", "odh-operator", "odh-dashboard", "odh-deployer"),
	literalRule("notebook_management", "odh-notebook-controller", "kf-notebook-controller"),
	literalRule("model_serving", "modelmesh", "kserve", "model-controller"),
	literalRule("data_pipelines", "ml-pipelines", "data-science-pipelines", "argo"),
	literalRule("distributed_computing", "kuberay", "codeflare", "training-operator"),
	literalRule("development_environments", "notebook", "workbench", "code-server"),
	literalRule("ml_runtimes", "tensorflow", "pytorch", "cuda"),
	literalRule("specialized_ai", "openvino", "trustyai"),
}

func literalRule(key string, markers ...string) ComponentRule {
	quoted := make([]string, 0, len(markers))
	for _, m := range markers {
		quoted = append(quoted, regexp.QuoteMeta(m))
	}
	return rule(key, quoted...)
}

type componentMeta struct {
	name        string
	description string
}

var componentCatalog = map[string]componentMeta{
	"platform_core":             {"Platform Core", "Core platform services and user interface"},
	"notebook_controllers":      {"Notebook Controllers", "Interactive development environment management"},
	"pytorch_notebooks":         {"PyTorch Notebooks", "Workbench images with PyTorch preinstalled"},
	"tensorflow_notebooks":      {"TensorFlow Notebooks", "Workbench images with TensorFlow preinstalled"},
	"cuda_notebooks":            {"CUDA Notebooks", "GPU-enabled workbench images built on CUDA"},
	"rocm_notebooks":            {"ROCm Notebooks", "GPU-enabled workbench images built on ROCm"},
	"trustyai_notebooks":        {"TrustyAI Notebooks", "Workbench images bundling the TrustyAI toolkit"},
	"datascience_notebooks":     {"Data Science Notebooks", "General purpose data science workbench images"},
	"minimal_notebooks":         {"Minimal Notebooks", "Minimal Python workbench images"},
	"code_server":               {"Code Server", "Browser-based VS Code workbench images"},
	"rstudio":                   {"RStudio", "RStudio Server workbench images"},
	"jupyter_notebooks":         {"Jupyter Notebooks", "Other Jupyter-based workbench images"},
	"model_serving_controllers": {"Model Serving Controllers", "Controllers managing model deployments"},
	"modelmesh":                 {"ModelMesh", "Multi-model serving with ModelMesh"},
	"kserve":                    {"KServe", "Single-model serving with KServe"},
	"serving_runtimes":          {"Serving Runtimes", "Model server runtimes used for inference"},
	"data_science_pipelines":    {"Data Science Pipelines", "Workflow orchestration and data processing"},
	"distributed_workloads":     {"Distributed Workloads", "Distributed ML training and batch processing"},
	"trustyai":                  {"TrustyAI", "Model explainability, fairness and guardrails"},
	"model_registry":            {"Model Registry", "Model metadata and versioning"},
	"feature_store":             {"Feature Store", "Feature management for training and serving"},
	"pytorch_runtimes":          {"PyTorch Runtimes", "PyTorch runtime images for pipelines and training"},
	"tensorflow_runtimes":       {"TensorFlow Runtimes", "TensorFlow runtime images for pipelines and training"},
	"cuda_runtimes":             {"CUDA Runtimes", "CUDA base and runtime images"},
	"rocm_runtimes":             {"ROCm Runtimes", "ROCm base and runtime images"},
	"training_images":           {"Training Images", "Images used by training and fine-tuning jobs"},
	"specialized_ai":            {"Specialized AI", "Specialized model execution and analysis"},
	"auth_proxies":              {"Authentication Proxies", "OAuth and RBAC proxies fronting platform services"},
	"monitoring":                {"Monitoring", "Metrics collection and alerting"},

	"notebook_management":      {"Notebook Management", "Interactive development environment management"},
	"model_serving":            {"Model Serving", "ML model deployment and inference"},
	"data_pipelines":           {"Data Pipelines", "Workflow orchestration and data processing"},
	"distributed_computing":    {"Distributed Computing", "Distributed ML training and batch processing"},
	"development_environments": {"Development Environments", "Interactive development and experimentation"},
	"ml_runtimes":              {"ML Runtimes", "Model training and development environments"},

	OtherComponent: {"Other", "Other components"},
}

const unknownComponentDescription = "Unknown component type"

// ComponentDisplay resolves the display name and description of a component key.
// Unknown keys get a title-cased rendering of the key.
func ComponentDisplay(key string) (name, description string) {
	if meta, ok := componentCatalog[key]; ok {
		return meta.name, meta.description
	}
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " ")), unknownComponentDescription
}
