// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package azure

import "github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

// cognitiveServicesScope is the OAuth scope Azure OpenAI token requests use
// under managed-identity / service-principal auth.
const cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

func policyTokenOptions() policy.TokenRequestOptions {
	return policy.TokenRequestOptions{Scopes: []string{cognitiveServicesScope}}
}
