package tf

// InitArgs builds the argv for `terraform init`.
func InitArgs() []string {
	return []string{"init", "-input=false", "-no-color"}
}

// WorkspaceSelectArgs builds the argv for `terraform workspace select <W>`.
func WorkspaceSelectArgs(workspace string) []string {
	return []string{"workspace", "select", workspace}
}

// PlanArgs builds the argv for `terraform plan`. outPath is empty when no
// -out= plan file should be written (dry-run apply).
func PlanArgs(outPath string, varFiles []string) []string {
	args := []string{"plan", "-input=false", "-no-color"}
	if outPath != "" {
		args = append(args, "-out="+outPath)
	}

	return appendVarFiles(args, varFiles)
}

// ApplyArgs builds the argv for `terraform apply -auto-approve`. Interactive
// confirmation is never attempted.
func ApplyArgs(varFiles []string) []string {
	args := []string{"apply", "-auto-approve", "-input=false", "-no-color"}

	return appendVarFiles(args, varFiles)
}

func appendVarFiles(args, varFiles []string) []string {
	for _, f := range varFiles {
		args = append(args, "-var-file="+f)
	}

	return args
}
