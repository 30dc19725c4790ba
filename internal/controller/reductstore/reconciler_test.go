/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package reductstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/probe"
	"github.com/reductstore/reductstore-operator/internal/relation/catalogue"
)

type fakeProber struct {
	version string
	err     error
}

func (f *fakeProber) Info(context.Context) (*probe.ServerInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &probe.ServerInfo{Version: f.version}, nil
}

var _ = Describe("ReductStore Controller", func() {
	const (
		namespace = "lab"
		name      = "store"
	)

	var (
		ctx        context.Context
		k8sClient  client.Client
		reconciler *ReductStoreReconciler
		prober     *fakeProber
		proberCfgs []probe.ProberConfig
		now        time.Time
		key        = types.NamespacedName{Namespace: namespace, Name: name}
	)

	newReductStore := func() *reductv1alpha1.ReductStore {
		rs := &reductv1alpha1.ReductStore{
			ObjectMeta: metav1.ObjectMeta{
				Name:       name,
				Namespace:  namespace,
				Generation: 1,
			},
			Spec: reductv1alpha1.ReductStoreSpec{
				Image: "reduct/store:v1.15.0",
				License: &reductv1alpha1.LicenseSource{
					SecretName: "store-license",
				},
			},
		}
		rs.Default()
		return rs
	}

	newLicenseSecret := func() *corev1.Secret {
		return &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{Name: "store-license", Namespace: namespace},
			Data:       map[string][]byte{reductv1alpha1.DefaultLicenseKey: []byte("LICENSE")},
		}
	}

	setup := func(objs ...client.Object) {
		k8sClient = fake.NewClientBuilder().
			WithScheme(testScheme).
			WithObjects(objs...).
			WithStatusSubresource(&reductv1alpha1.ReductStore{}, &appsv1.StatefulSet{}, &networkingv1.Ingress{}).
			WithIndex(&reductv1alpha1.ReductStore{}, licenseSecretIndex, licenseSecretName).
			Build()

		reconciler = NewReconciler(k8sClient, testScheme)
		reconciler.Now = func() time.Time { return now }
		reconciler.NewProber = func(cfg probe.ProberConfig) (InfoProber, error) {
			proberCfgs = append(proberCfgs, cfg)
			return prober, nil
		}
	}

	reconcileOnce := func() ctrl.Result {
		result, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: key})
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	fetch := func() *reductv1alpha1.ReductStore {
		rs := &reductv1alpha1.ReductStore{}
		Expect(k8sClient.Get(ctx, key, rs)).To(Succeed())
		return rs
	}

	markStatefulSetReady := func() {
		sts := &appsv1.StatefulSet{}
		Expect(k8sClient.Get(ctx, key, sts)).To(Succeed())
		sts.Status.Replicas = 1
		sts.Status.ReadyReplicas = 1
		Expect(k8sClient.Status().Update(ctx, sts)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		prober = &fakeProber{version: "1.15.0"}
		proberCfgs = nil
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	Context("when the ReductStore does not exist", func() {
		It("returns without error", func() {
			setup()
			Expect(reconcileOnce()).To(Equal(ctrl.Result{}))
		})
	})

	Context("when the log level is invalid", func() {
		It("blocks with the rejected level and creates no workload", func() {
			rs := newReductStore()
			rs.Spec.LogLevel = "foobar"
			setup(rs, newLicenseSecret())

			reconcileOnce()

			got := fetch()
			Expect(got.Status.Phase).To(Equal(reductv1alpha1.PhaseBlocked))
			Expect(got.Status.Message).To(Equal("invalid log level: 'foobar'"))
			Expect(meta.IsStatusConditionFalse(got.Status.Conditions, string(reductv1alpha1.ConditionConfigValid))).To(BeTrue())

			err := k8sClient.Get(ctx, key, &appsv1.StatefulSet{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})
	})

	Context("when the license Secret is missing", func() {
		It("blocks until the Secret appears", func() {
			setup(newReductStore())

			reconcileOnce()

			got := fetch()
			Expect(got.Status.Phase).To(Equal(reductv1alpha1.PhaseBlocked))
			Expect(got.Status.Message).To(ContainSubstring("reductstore-license"))
			Expect(got.Status.Message).To(ContainSubstring("store-license"))
			Expect(apierrors.IsNotFound(k8sClient.Get(ctx, key, &appsv1.StatefulSet{}))).To(BeTrue())

			Expect(k8sClient.Create(ctx, newLicenseSecret())).To(Succeed())
			reconcileOnce()

			got = fetch()
			Expect(got.Status.Phase).To(Equal(reductv1alpha1.PhaseMaintenance))
			Expect(got.Status.Message).To(Equal("waiting for workload API"))
			Expect(meta.IsStatusConditionTrue(got.Status.Conditions, string(reductv1alpha1.ConditionLicenseReady))).To(BeTrue())
			Expect(k8sClient.Get(ctx, key, &appsv1.StatefulSet{})).To(Succeed())
		})

		It("blocks when the Secret lacks the license key", func() {
			secret := newLicenseSecret()
			secret.Data = map[string][]byte{"other": []byte("x")}
			setup(newReductStore(), secret)

			reconcileOnce()

			got := fetch()
			Expect(got.Status.Phase).To(Equal(reductv1alpha1.PhaseBlocked))
			Expect(got.Status.Message).To(ContainSubstring(`no key "license.key"`))
		})
	})

	Context("when the workload becomes ready", func() {
		It("runs the status check and goes Active", func() {
			setup(newReductStore(), newLicenseSecret())

			reconcileOnce()
			Expect(fetch().Status.Phase).To(Equal(reductv1alpha1.PhaseMaintenance))
			Expect(proberCfgs).To(BeEmpty())

			markStatefulSetReady()
			result := reconcileOnce()

			got := fetch()
			Expect(got.Status.Phase).To(Equal(reductv1alpha1.PhaseActive))
			Expect(got.Status.Message).To(BeEmpty())
			Expect(got.Status.ServerVersion).To(Equal("1.15.0"))
			Expect(got.Status.ReadyReplicas).To(Equal(int32(1)))
			Expect(got.Status.LastStatusCheck).NotTo(BeNil())
			Expect(got.Status.ObservedGeneration).To(Equal(got.Generation))
			Expect(meta.IsStatusConditionTrue(got.Status.Conditions, string(reductv1alpha1.ConditionWorkloadReady))).To(BeTrue())

			Expect(proberCfgs).To(HaveLen(1))
			Expect(proberCfgs[0].Addr).To(Equal("http://store.lab.svc:8383"))
			Expect(proberCfgs[0].BasePath).To(Equal("/lab-store"))

			Expect(result.RequeueAfter).To(Equal(5 * time.Minute))
		})

		It("skips the status check until the schedule is due", func() {
			setup(newReductStore(), newLicenseSecret())
			reconcileOnce()
			markStatefulSetReady()
			reconcileOnce()
			Expect(proberCfgs).To(HaveLen(1))

			now = now.Add(time.Minute)
			reconcileOnce()
			Expect(proberCfgs).To(HaveLen(1))

			now = now.Add(5 * time.Minute)
			reconcileOnce()
			Expect(proberCfgs).To(HaveLen(2))
		})

		It("stays in Maintenance while the info endpoint fails", func() {
			setup(newReductStore(), newLicenseSecret())
			reconcileOnce()
			markStatefulSetReady()

			prober.err = errors.New("connection refused")
			result := reconcileOnce()

			got := fetch()
			Expect(got.Status.Phase).To(Equal(reductv1alpha1.PhaseMaintenance))
			Expect(got.Status.Message).To(Equal("waiting for workload API"))
			Expect(result.RequeueAfter).To(Equal(constants.RequeueStandard))
		})
	})

	Context("when an Ingress is configured", func() {
		It("waits for admission and then reports the ingress URL", func() {
			rs := newReductStore()
			rs.Spec.Ingress = &reductv1alpha1.IngressConfig{Host: "reduct.example.test"}
			setup(rs, newLicenseSecret())

			reconcileOnce()
			markStatefulSetReady()
			reconcileOnce()

			got := fetch()
			Expect(got.Status.Phase).To(Equal(reductv1alpha1.PhaseMaintenance))
			Expect(got.Status.Message).To(Equal("Waiting for ingress"))
			Expect(got.Status.IngressURL).To(BeEmpty())

			ingress := &networkingv1.Ingress{}
			Expect(k8sClient.Get(ctx, key, ingress)).To(Succeed())
			ingress.Status.LoadBalancer.Ingress = []networkingv1.IngressLoadBalancerIngress{{IP: "10.0.0.10"}}
			Expect(k8sClient.Status().Update(ctx, ingress)).To(Succeed())

			reconcileOnce()

			got = fetch()
			Expect(got.Status.Phase).To(Equal(reductv1alpha1.PhaseActive))
			Expect(got.Status.Message).To(Equal("Ingress at http://reduct.example.test/"))
			Expect(got.Status.IngressURL).To(Equal("http://reduct.example.test/"))
			Expect(got.Status.APIURL).To(Equal("http://reduct.example.test/lab-store"))
			Expect(got.Status.UIURL).To(Equal("http://reduct.example.test/lab-store/ui/dashboard"))

			cm := &corev1.ConfigMap{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: namespace, Name: "store-catalogue"}, cm)).To(Succeed())
			var item catalogue.Item
			Expect(json.Unmarshal([]byte(cm.Data[constants.CatalogueConfigMapKey]), &item)).To(Succeed())
			Expect(item.URL).To(Equal("http://reduct.example.test/lab-store/ui/dashboard"))
			Expect(item.APIEndpoints).To(HaveKeyWithValue("Server Info", "http://reduct.example.test/lab-store/api/v1/info"))
		})
	})

	Context("when reconciliation is paused", func() {
		It("leaves resources untouched", func() {
			rs := newReductStore()
			rs.Spec.Paused = true
			setup(rs, newLicenseSecret())

			Expect(reconcileOnce()).To(Equal(ctrl.Result{}))

			got := fetch()
			Expect(got.Status.Message).To(Equal(messagePaused))
			Expect(apierrors.IsNotFound(k8sClient.Get(ctx, key, &appsv1.StatefulSet{}))).To(BeTrue())
		})
	})

	Context("when a license Secret changes", func() {
		It("maps the Secret to the ReductStores referencing it", func() {
			other := newReductStore()
			other.Name = "unrelated"
			other.Spec.License.SecretName = "other-license"
			setup(newReductStore(), other)

			requests := reconciler.reductStoresForSecret(ctx, newLicenseSecret())
			Expect(requests).To(HaveLen(1))
			Expect(requests[0].NamespacedName).To(Equal(key))
		})
	})
})
